package linkpreview

// Container width breakpoints, in pixels.
const (
	TwoColumnWidth = 500
	GridWidth      = 600
)

// BestImageURL picks the image variant that suits a container of the given
// width: large-first for grids, medium for two columns, thumbnail otherwise.
// Providers that only report the original image fall back to it.
func BestImageURL(r *Record, containerWidth int) string {
	if r == nil || r.Image == nil {
		return ""
	}
	img := r.Image

	switch {
	case containerWidth >= GridWidth:
		return firstURL(img.Large, img.Medium, img.Thumbnail, img.Original)
	case containerWidth >= TwoColumnWidth:
		return firstURL(img.Medium, img.Thumbnail, img.Original)
	default:
		return firstURL(img.Thumbnail, img.Original)
	}
}

func firstURL(variants ...*ImageVariant) string {
	for _, v := range variants {
		if v != nil && v.URL != "" {
			return v.URL
		}
	}
	return ""
}
