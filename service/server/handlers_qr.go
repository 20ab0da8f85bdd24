package server

import (
	"io"
	"net/http"

	"herald/service/util"

	"github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"
)

// handleSubscribeQR renders a QR code pointing at the public subscribe
// page, for posting on department notice boards.
func (s *Server) handleSubscribeQR(w http.ResponseWriter, r *http.Request) {
	qrc, err := qrcode.New(s.cfg.PublicURL + "/subscribe.html")
	if err != nil {
		util.LogAndError(w, s.logger, "Failed to build QR code", http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")

	writer := standard.NewWithWriter(nopWriteCloser{w}, standard.WithQRWidth(8))
	if err := qrc.Save(writer); err != nil {
		s.logger.Error("Failed to render QR code", "error", err)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
