package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/eugenenazirov/stowage/internal/geometry"
	"github.com/eugenenazirov/stowage/internal/importer"
	"github.com/eugenenazirov/stowage/internal/planner"
)

var validate = validator.New()

// decodeJSON reads a JSON body into dst and validates its struct tags. On
// failure it writes a 400 response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", describeValidation(err))
		return false
	}
	return true
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg := fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		msgs = append(msgs, msg)
	}
	return strings.Join(msgs, "; ")
}

type vecDTO struct {
	Width  float64 `json:"width" validate:"gte=0"`
	Depth  float64 `json:"depth" validate:"gte=0"`
	Height float64 `json:"height" validate:"gte=0"`
}

func (v vecDTO) vec() geometry.Vec3 {
	return geometry.Vec3{W: v.Width, D: v.Depth, H: v.Height}
}

func toVecDTO(v geometry.Vec3) vecDTO {
	return vecDTO{Width: v.W, Depth: v.D, Height: v.H}
}

type positionDTO struct {
	Start vecDTO `json:"startCoordinates"`
	End   vecDTO `json:"endCoordinates"`
}

func (p positionDTO) box() geometry.Box {
	return geometry.Box{Start: p.Start.vec(), End: p.End.vec()}
}

func toPositionDTO(b geometry.Box) positionDTO {
	return positionDTO{Start: toVecDTO(b.Start), End: toVecDTO(b.End)}
}

type itemDTO struct {
	ItemID        string  `json:"itemId" validate:"required"`
	Name          string  `json:"name" validate:"required"`
	Width         float64 `json:"width" validate:"gt=0"`
	Depth         float64 `json:"depth" validate:"gt=0"`
	Height        float64 `json:"height" validate:"gt=0"`
	Mass          float64 `json:"mass" validate:"gte=0"`
	Priority      int     `json:"priority" validate:"min=0,max=100"`
	ExpiryDate    string  `json:"expiryDate,omitempty"`
	UsageLimit    *int    `json:"usageLimit,omitempty" validate:"omitempty,gte=0"`
	PreferredZone string  `json:"preferredZone,omitempty"`
}

func (d itemDTO) item() (planner.Item, error) {
	it := planner.Item{
		ID:            d.ItemID,
		Name:          d.Name,
		Size:          geometry.Vec3{W: d.Width, D: d.Depth, H: d.Height},
		Mass:          d.Mass,
		Priority:      d.Priority,
		PreferredZone: d.PreferredZone,
	}
	if d.UsageLimit != nil {
		limit, left := *d.UsageLimit, *d.UsageLimit
		it.UsageLimit, it.UsesRemaining = &limit, &left
	}
	if d.ExpiryDate != "" {
		exp, err := importer.ParseExpiry(d.ExpiryDate)
		if err != nil {
			return planner.Item{}, fmt.Errorf("%w: item %s: %v", planner.ErrInvalidItem, d.ItemID, err)
		}
		it.Expiry = &exp
	}
	return it, nil
}

type containerDTO struct {
	ContainerID string  `json:"containerId" validate:"required"`
	Zone        string  `json:"zone" validate:"required"`
	Width       float64 `json:"width" validate:"gt=0"`
	Depth       float64 `json:"depth" validate:"gt=0"`
	Height      float64 `json:"height" validate:"gt=0"`
}

func (d containerDTO) container() planner.Container {
	return planner.Container{
		ID:   d.ContainerID,
		Zone: d.Zone,
		Size: geometry.Vec3{W: d.Width, D: d.Depth, H: d.Height},
	}
}

func toContainerDTO(c planner.Container) containerDTO {
	return containerDTO{ContainerID: c.ID, Zone: c.Zone, Width: c.Size.W, Depth: c.Size.D, Height: c.Size.H}
}

// itemView is the read model of a stored item.
type itemView struct {
	ItemID        string       `json:"itemId"`
	Name          string       `json:"name"`
	Width         float64      `json:"width"`
	Depth         float64      `json:"depth"`
	Height        float64      `json:"height"`
	Mass          float64      `json:"mass"`
	Priority      int          `json:"priority"`
	ExpiryDate    *time.Time   `json:"expiryDate"`
	UsageLimit    *int         `json:"usageLimit"`
	UsesRemaining *int         `json:"usesRemaining"`
	PreferredZone string       `json:"preferredZone,omitempty"`
	ContainerID   string       `json:"containerId,omitempty"`
	Position      *positionDTO `json:"position,omitempty"`
	IsWaste       bool         `json:"isWaste"`
}

func toItemView(it planner.Item) itemView {
	v := itemView{
		ItemID:        it.ID,
		Name:          it.Name,
		Width:         it.Size.W,
		Depth:         it.Size.D,
		Height:        it.Size.H,
		Mass:          it.Mass,
		Priority:      it.Priority,
		ExpiryDate:    it.Expiry,
		UsageLimit:    it.UsageLimit,
		UsesRemaining: it.UsesRemaining,
		PreferredZone: it.PreferredZone,
		IsWaste:       it.Disposal,
	}
	if it.Location != nil {
		pos := toPositionDTO(it.Location.Box)
		v.ContainerID = it.Location.ContainerID
		v.Position = &pos
	}
	return v
}

type placementDTO struct {
	ItemID      string      `json:"itemId"`
	ContainerID string      `json:"containerId"`
	Position    positionDTO `json:"position"`
}

type rearrangementDTO struct {
	Step          int          `json:"step"`
	Action        string       `json:"action"`
	ItemID        string       `json:"itemId"`
	FromContainer string       `json:"fromContainer,omitempty"`
	FromPosition  *positionDTO `json:"fromPosition,omitempty"`
	ToContainer   string       `json:"toContainer,omitempty"`
	ToPosition    *positionDTO `json:"toPosition,omitempty"`
	Strategy      string       `json:"strategy"`
	ForItemID     string       `json:"forItemId"`
}

func toRearrangementDTO(s planner.PlacementStep) rearrangementDTO {
	d := rearrangementDTO{
		Step:          s.Step,
		Action:        string(s.Action),
		ItemID:        s.ItemID,
		FromContainer: s.FromContainer,
		ToContainer:   s.ToContainer,
		Strategy:      string(s.Strategy),
		ForItemID:     s.ForItemID,
	}
	if s.FromBox != nil {
		p := toPositionDTO(*s.FromBox)
		d.FromPosition = &p
	}
	if s.ToBox != nil {
		p := toPositionDTO(*s.ToBox)
		d.ToPosition = &p
	}
	return d
}

// limitedBody reads at most limit bytes of the request body.
func limitedBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
}
