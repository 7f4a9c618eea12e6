package mapsync

import "github.com/imartinezl/patitas/internal/core/domain"

// Status color table shared by individual markers and unclustered cluster
// points, so both render modes stay visually consistent.
const (
	colorNeedsHelp   = "#FF4500"
	colorBeingHelped = "#FFA500"
	colorAdopted     = "#32CD32"
	colorReported    = "#9370DB"
	colorUnknown     = "#888888"
)

// StatusColor maps a lifecycle status to its marker color.
func StatusColor(s domain.AnimalStatus) string {
	switch s {
	case domain.StatusNeedsHelp:
		return colorNeedsHelp
	case domain.StatusBeingHelped:
		return colorBeingHelped
	case domain.StatusAdopted:
		return colorAdopted
	case domain.StatusReported:
		return colorReported
	default:
		return colorUnknown
	}
}

// TypeIcon maps an animal type to its marker icon name.
func TypeIcon(t domain.AnimalType) string {
	switch t {
	case domain.TypeCat:
		return "cat"
	case domain.TypeDog:
		return "dog"
	default:
		return "paw"
	}
}

// statusColorExpression is the data-driven paint expression applying the
// status color table to unclustered points.
func statusColorExpression() []any {
	return []any{
		"match", []any{"get", "status"},
		string(domain.StatusNeedsHelp), colorNeedsHelp,
		string(domain.StatusBeingHelped), colorBeingHelped,
		string(domain.StatusAdopted), colorAdopted,
		string(domain.StatusReported), colorReported,
		colorUnknown,
	}
}
