package viewmodel

// ScrollThreshold is how close to the bottom, in layout units, the viewport
// must be before the next page is fetched.
const ScrollThreshold = 300

// NearBottom reports whether the visible area ends within ScrollThreshold
// of the end of the document.
func NearBottom(scrollTop, viewportHeight, documentHeight float64) bool {
	return scrollTop+viewportHeight >= documentHeight-ScrollThreshold
}
