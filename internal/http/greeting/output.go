package greeting

// Output is the raw HTML greeting. Body is written verbatim.
type Output struct {
	ContentType string `header:"Content-Type"`
	Body        []byte `contentType:"text/html"`
}
