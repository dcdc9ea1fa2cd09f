package content

// SearchResult is the outcome of resolving a Path: the best object found and
// whether the match had to be approximated.
type SearchResult struct {
	Object      Object
	Approximate bool
}

// CorrectObj returns the object only for an exact match. Anything that
// executes into the result must go through here rather than Object.
func (r SearchResult) CorrectObj() (Object, bool) {
	if r.Approximate || r.Object == nil {
		return nil, false
	}
	return r.Object, true
}

// Container narrows the found object to a container, regardless of whether
// the match was exact.
func (r SearchResult) Container() (*Container, bool) {
	return AsContainer(r.Object)
}
