// Package transcript renders a conversation timeline for export.
//
// Markdown produces a plain document with one section per turn. HTML feeds
// the same document through goldmark so agent replies, which are usually
// Markdown themselves, keep their formatting.
//
//	md := transcript.Markdown(state.Conversation, state.Agent, state.Messages)
//	html, err := transcript.HTML(md)
package transcript
