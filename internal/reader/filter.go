package reader

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// eligibleObjects selects the content objects that take part in reading
// order reconstruction: every image, and every text object whose trimmed
// extracted text is non-empty. Objects of other kinds are dropped, as are
// text objects whose text accessor fails.
func eligibleObjects(objs []Object) []Object {
	keep := make([]Object, 0, len(objs))
	for _, o := range objs {
		switch o.Kind() {
		case KindImage:
			keep = append(keep, o)
		case KindText:
			txt, err := o.Text()
			if err != nil {
				log.Debug().Err(err).Msg("text accessor failed; dropping object")
				continue
			}
			if strings.TrimSpace(txt) != "" {
				keep = append(keep, o)
			}
		}
	}
	return keep
}
