package stock

import (
	"time"

	"github.com/google/uuid"
)

// EndpointResponse is the JSON projection of a movement side.
type EndpointResponse struct {
	Kind string `json:"kind,omitempty"`
	Code string `json:"code,omitempty"`
	Name string `json:"name,omitempty"`
}

// MovementResponse is the JSON projection of a movement.
type MovementResponse struct {
	ID        int64            `json:"id"`
	Number    string           `json:"number"`
	Date      time.Time        `json:"date"`
	SKU       string           `json:"sku"`
	Qty       float64          `json:"qty"`
	UoM       string           `json:"uom"`
	UnitCost  float64          `json:"unitCost"`
	Source    EndpointResponse `json:"source"`
	Dest      EndpointResponse `json:"dest"`
	Status    string           `json:"status"`
	RefModule string           `json:"refModule,omitempty"`
	RefID     string           `json:"refId,omitempty"`
}

func toMovementResponse(mv Movement) MovementResponse {
	resp := MovementResponse{
		ID:        mv.ID,
		Number:    mv.Number,
		Date:      mv.Date,
		SKU:       mv.SKU,
		Qty:       mv.Qty,
		UoM:       mv.UoM,
		UnitCost:  mv.UnitCost,
		Source:    EndpointResponse{Kind: string(mv.Source.Kind), Code: mv.Source.Code, Name: mv.Source.Name},
		Dest:      EndpointResponse{Kind: string(mv.Dest.Kind), Code: mv.Dest.Code, Name: mv.Dest.Name},
		Status:    string(mv.Status),
		RefModule: mv.RefModule,
	}
	if mv.RefID != uuid.Nil {
		resp.RefID = mv.RefID.String()
	}
	return resp
}
