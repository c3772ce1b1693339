package cluster

import "strconv"

// Icon describes how the surface draws one marker.
type Icon struct {
	Kind         string `json:"kind"` // "place", "own", "draft" or "cluster"
	ClassName    string `json:"className"`
	Size         int    `json:"size"`
	AnchorX      int    `json:"anchorX"`
	AnchorY      int    `json:"anchorY"`
	PopupAnchorY int    `json:"popupAnchorY,omitempty"`
	Color        string `json:"color"`
	Label        string `json:"label,omitempty"`
	Pulse        bool   `json:"pulse,omitempty"`
}

type IconFactory interface {
	RenderLeaf(p Point) Icon
	RenderCluster(count int) Icon
}

const (
	colorGreen  = "#22c55e"
	colorYellow = "#eab308"
	colorRed    = "#ef4444"
	colorOrange = "#f97316"
)

// BadgeIcons renders pin markers and round count badges. CurrentUser, when
// set, marks the signed-in user's own places.
type BadgeIcons struct {
	CurrentUser func() (int64, bool)
}

func (b BadgeIcons) RenderLeaf(p Point) Icon {
	icon := Icon{
		Kind:         "place",
		ClassName:    "custom-marker",
		Size:         40,
		AnchorX:      20,
		AnchorY:      40,
		PopupAnchorY: -45,
		Color:        colorGreen,
	}
	if b.CurrentUser != nil {
		if uid, ok := b.CurrentUser(); ok && uid != 0 && uid == p.OwnerID {
			icon.Kind = "own"
			icon.Color = colorOrange
		}
	}
	return icon
}

func (BadgeIcons) RenderCluster(count int) Icon {
	size, color, class := BadgeStep(count)
	return Icon{
		Kind:      "cluster",
		ClassName: class,
		Size:      size,
		AnchorX:   size / 2,
		AnchorY:   size / 2,
		Color:     color,
		Label:     strconv.Itoa(count),
	}
}

// RenderDraft is the marker of the unsaved place being created.
func (BadgeIcons) RenderDraft() Icon {
	return Icon{
		Kind:         "draft",
		ClassName:    "draft-marker",
		Size:         50,
		AnchorX:      25,
		AnchorY:      50,
		PopupAnchorY: -55,
		Color:        colorRed,
		Pulse:        true,
	}
}

// BadgeStep maps a member count to badge size, color and class.
func BadgeStep(count int) (int, string, string) {
	switch {
	case count < 10:
		return 40, colorGreen, "marker-cluster-small"
	case count < 100:
		return 50, colorYellow, "marker-cluster-medium"
	default:
		return 60, colorRed, "marker-cluster-large"
	}
}
