// Package transcript exports local chat sessions as Markdown or HTML.
package transcript
