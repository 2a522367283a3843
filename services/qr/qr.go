// Package qrsvc rasterizes QR payloads with skip2/go-qrcode.
package qrsvc

import (
	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"

	qrpayload "github.com/trezcool/mpiangona/core/qrcode"
)

type Rasterizer struct {
	level qrcode.RecoveryLevel
}

var _ qrpayload.Rasterizer = (*Rasterizer)(nil)

// NewRasterizer uses the medium (15%) error recovery level.
func NewRasterizer() *Rasterizer {
	return &Rasterizer{level: qrcode.Medium}
}

func (r Rasterizer) PNG(payload string, size int) ([]byte, error) {
	png, err := qrcode.Encode(payload, r.level, size)
	if err != nil {
		return nil, errors.Wrap(err, "encoding qr code")
	}
	return png, nil
}
