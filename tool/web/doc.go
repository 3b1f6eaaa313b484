// Package web provides the web research capabilities: a Serper backed
// Google search and a page visitor that converts HTML to markdown.
package web
