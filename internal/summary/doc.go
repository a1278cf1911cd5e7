// Package summary turns an audited site report into a narrative findings
// document by asking a large language model.
//
// Two providers are supported: a local Ollama server and the OpenAI chat
// completions API. Both receive the same prompt built by BuildPrompt and
// both responses go through ParseResponse, which extracts the first JSON
// object from the model output. A response that cannot be decoded is not
// an error: it is returned as a Malformed result carrying the raw text so
// callers can still show something to the user.
package summary
