package linkpreview

// Card is the display form of one outcome for a container of a given width.
type Card struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Domain      string    `json:"domain,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Error       string    `json:"error,omitempty"`
	ErrorType   ErrorType `json:"errorType,omitempty"`
}

// Cards renders outcomes in order. A non-positive width uses GridWidth.
func Cards(outcomes []Outcome, containerWidth int) []Card {
	if containerWidth <= 0 {
		containerWidth = GridWidth
	}

	cards := make([]Card, 0, len(outcomes))
	for _, o := range outcomes {
		if r := o.Record; r != nil {
			cards = append(cards, Card{
				URL:         r.OriginalURL,
				Title:       r.DisplayTitle(),
				Description: r.Description,
				Domain:      r.Domain,
				ImageURL:    BestImageURL(r, containerWidth),
			})
			continue
		}
		c := Card{URL: o.OriginalURL(), Title: o.OriginalURL()}
		if f := o.Failure; f != nil {
			c.Error = f.Message
			c.ErrorType = f.Type
		}
		cards = append(cards, c)
	}
	return cards
}
