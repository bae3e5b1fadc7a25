package core

// Transformer mutates a record stream in place before it is served or
// rendered.
type Transformer interface {
	Transform(records []Record) error
}

// Chain applies transformers in order, stopping at the first error.
func Chain(records []Record, transformers ...Transformer) error {
	for _, tr := range transformers {
		if tr == nil {
			continue
		}
		if err := tr.Transform(records); err != nil {
			return err
		}
	}
	return nil
}
