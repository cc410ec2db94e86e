package hunter

import (
	"time"

	"github.com/sells-group/lead-hunter/internal/model"
)

var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func permit(id string, status model.PermitStatus, lat, lng float64) model.Permit {
	return model.Permit{
		ID:         id,
		Latitude:   lat,
		Longitude:  lng,
		City:       "Boston",
		State:      "MA",
		PermitType: model.PermitResidential,
		Status:     status,
		CreatedAt:  testNow.AddDate(0, 0, -3),
	}
}

func hot(id string, lat, lng float64) model.Permit {
	return permit(id, model.StatusHot, lat, lng)
}
