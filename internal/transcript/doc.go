// Package transcript renders a conversation for export.
//
// Message text is Markdown. WriteHTML converts each bubble with goldmark
// into a standalone page; raw HTML in message text is not passed through.
// WriteText produces a plain, labelled transcript for the terminal or a
// .txt file.
package transcript
