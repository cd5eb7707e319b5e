package integrations

// Converter turns the image at src into a new file at dst.
type Converter interface {
	Convert(src, dst string) error
}
