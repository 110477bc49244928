package runner

// ModelBackend is the black-box numeric model surface: given the tokens to
// consume and the absolute position of the first of them in the sequence,
// it returns one logits vector per vocabulary entry for the final token.
// The actual weights, quantization format, and device placement are out of
// scope; this interface is the seam the decode loop is built against.
type ModelBackend interface {
	Forward(tokens []uint32, startPos int) ([]float32, error)
}

// Tokenizer is the black-box text<->token surface.
type Tokenizer interface {
	Encode(text string) ([]uint32, error)
	// Decode renders the full token sequence decoded so far. The decode
	// loop diffs successive calls to emit only the new suffix, since some
	// tokenizers merge trailing byte-pairs across steps.
	Decode(tokens []uint32) (string, error)
	EOSToken() uint32
}
