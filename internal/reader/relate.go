package reader

// minRelatedLineLen is the minimum character count for a text line to take
// part in image association. Shorter lines are usually stray punctuation
// or extraction artifacts; they still appear in the reported page text.
const minRelatedLineLen = 2

// relatable builds the filtered view of the item sequence used for image
// association: text lines shorter than minRelatedLineLen are dropped,
// images and the relative order of everything else are kept.
func relatable(items []PageItem) []PageItem {
	filtered := make([]PageItem, 0, len(items))
	for _, it := range items {
		if tl, ok := it.(TextLine); ok && len(tl) < minRelatedLineLen {
			continue
		}
		filtered = append(filtered, it)
	}
	return filtered
}

// relatedText returns up to two caption-proxy lines for the image at idx
// in the filtered view. An image leading the view relates forward to the
// next two text lines; any other image relates to the two text lines
// nearest before it, reported in original top-to-bottom order.
func relatedText(filtered []PageItem, idx int) []string {
	related := make([]string, 0, 2)

	if idx == 0 {
		for _, it := range filtered[1:] {
			if tl, ok := it.(TextLine); ok {
				related = append(related, string(tl))
				if len(related) == 2 {
					break
				}
			}
		}
		return related
	}

	for i := idx - 1; i >= 0 && len(related) < 2; i-- {
		if tl, ok := filtered[i].(TextLine); ok {
			related = append(related, string(tl))
		}
	}
	// Collected nearest-first; reverse into page order.
	for i, j := 0, len(related)-1; i < j; i, j = i+1, j-1 {
		related[i], related[j] = related[j], related[i]
	}
	return related
}

// projectPage maps the assembled item sequence into the page's final
// output shape. Text lines come from the unfiltered sequence so that
// association filtering never changes the reported line list.
func projectPage(items []PageItem, store ImageStore) ExtractedPage {
	page := ExtractedPage{
		PageTextLines: make([]string, 0, len(items)),
		PageImages:    []ExtractedImageMeta{},
	}

	for _, it := range items {
		if tl, ok := it.(TextLine); ok {
			page.PageTextLines = append(page.PageTextLines, string(tl))
		}
	}

	filtered := relatable(items)
	for idx, it := range filtered {
		ref, ok := it.(ImageRef)
		if !ok {
			continue
		}
		page.PageImages = append(page.PageImages, ExtractedImageMeta{
			Filename:      ref.Filename,
			FileSizeBytes: store.FileSize(ref.Filename),
			RelatedText:   relatedText(filtered, idx),
		})
	}

	return page
}
