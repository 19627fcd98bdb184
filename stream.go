package agentpipe

import (
	"iter"
)

// PromptsFromSlice creates a prompt stream from a slice.
// This is useful for sending a fixed set of prompts in streaming mode.
func PromptsFromSlice(prompts []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, p := range prompts {
			if !yield(p) {
				return
			}
		}
	}
}

// PromptsFromChannel creates a prompt stream from a channel.
// The iterator completes when the channel is closed.
func PromptsFromChannel(ch <-chan string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for p := range ch {
			if !yield(p) {
				return
			}
		}
	}
}

// SinglePrompt creates a prompt stream with one prompt.
func SinglePrompt(prompt string) iter.Seq[string] {
	return PromptsFromSlice([]string{prompt})
}
