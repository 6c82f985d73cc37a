package langx

// Clone applies the provided mutations to a copy of the value. options may
// be any named functional option type.
func Clone[T any, O ~func(*T)](v T, options ...O) T {
	for _, opt := range options {
		opt(&v)
	}

	return v
}
