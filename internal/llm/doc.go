// Package llm wraps the language models a tutor agent can be backed by.
//
// Every backend implements Provider: given a system prompt, the prior turns of
// a conversation, and the new user text, it returns the model's reply along
// with the tokens it consumed.
//
//   - EchoProvider answers deterministically without network access. It is the
//     default provider and the one tests use.
//   - GeminiProvider calls the Google Gemini API through generative-ai-go.
//
// New selects a provider from config.ModelConfig.
package llm
