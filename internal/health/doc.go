// Package health answers "can the backend accept work right now?". It owns
// the cached availability state and knows nothing about the queue; draining
// reacts to its signal channel.
package health
