package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/manal-catering/invoicer"
	"github.com/manal-catering/invoicer/internal/auth"
	"github.com/manal-catering/invoicer/internal/store"
)

const shutdownTimeout = 10 * time.Second

// issueDateLayout is the wire format the form sends for invoice dates.
const issueDateLayout = "2006-01-02"

// nowFunc is swapped in tests.
var nowFunc = time.Now

// handlers holds the dependencies of the HTTP endpoints.
type handlers struct {
	assets   *store.Store
	sessions *auth.Manager
	exporter Exporter
	logger   *zap.Logger
}

func newHandlers(assets *store.Store, sessions *auth.Manager, exporter Exporter, logger *zap.Logger) *handlers {
	return &handlers{
		assets:   assets,
		sessions: sessions,
		exporter: exporter,
		logger:   logger,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login checks the collaborator credentials and sets the session cookie.
func (h *handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	token, ok := h.sessions.Login(req.Username, req.Password)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	maxAge := int(h.sessions.TTL() / time.Second)
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.CookieName, token, maxAge, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Logout revokes the session and clears the cookie.
func (h *handlers) Logout(c *gin.Context) {
	if token, err := c.Cookie(auth.CookieName); err == nil {
		h.sessions.Revoke(token)
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SessionCheck reports whether the request carries a live session.
func (h *handlers) SessionCheck(c *gin.Context) {
	token, err := c.Cookie(auth.CookieName)
	if err != nil || !h.sessions.Validate(token) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HealthCheck reports server liveness.
func (h *handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

// StoredFiles returns the currently stored logo and stamp, if any.
func (h *handlers) StoredFiles(c *gin.Context) {
	files := gin.H{}
	for _, kind := range []store.Kind{store.KindLogo, store.KindStamp} {
		asset, err := h.assets.Get(kind)
		if err != nil {
			h.logger.Error("stored files lookup failed", zap.String("kind", string(kind)), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read stored files"})
			return
		}
		if asset == nil {
			files[string(kind)] = nil
		} else {
			files[string(kind)] = asset
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "files": files})
}

// UploadAsset stores an uploaded logo or stamp image, replacing any previous
// one of the same kind. The multipart field name matches the kind.
func (h *handlers) UploadAsset(kind store.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := c.FormFile(string(kind))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
			return
		}
		if fileHeader.Size > store.MaxAssetSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "File upload failed"})
			return
		}
		defer file.Close()

		content, err := io.ReadAll(io.LimitReader(file, store.MaxAssetSize+1))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "File upload failed"})
			return
		}

		asset, err := h.assets.Put(kind, fileHeader.Filename, content)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrTooLarge):
				c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
			case errors.Is(err, store.ErrEmptyContent):
				c.JSON(http.StatusBadRequest, gin.H{"error": "Empty file"})
			default:
				h.logger.Error("asset upload failed", zap.String("kind", string(kind)), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "File upload failed"})
			}
			return
		}

		h.logger.Info("asset stored",
			zap.String("kind", string(kind)),
			zap.String("filename", asset.Filename),
			zap.String("original_name", asset.OriginalName))
		c.JSON(http.StatusOK, gin.H{"success": true, "fileUrl": asset.URL, "filename": asset.Filename})
	}
}

// ClearFiles removes all stored assets.
func (h *handlers) ClearFiles(c *gin.Context) {
	if err := h.assets.Clear(); err != nil {
		h.logger.Error("clear files failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear files"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// generateRequest is the wire form of an invoice record. The issue date
// arrives as a plain calendar date rather than a full timestamp.
type generateRequest struct {
	Company   invoicer.Company    `json:"company"`
	Meta      metaPayload         `json:"invoiceMeta"`
	Client    invoicer.Client     `json:"client"`
	LineItems []invoicer.LineItem `json:"lineItems"`
	Pricing   invoicer.Pricing    `json:"pricing"`
}

type metaPayload struct {
	Number    string `json:"number"`
	IssueDate string `json:"issueDate"`
}

func (r generateRequest) toRecord() (invoicer.InvoiceRecord, error) {
	issued := nowFunc()
	if r.Meta.IssueDate != "" {
		t, err := time.Parse(issueDateLayout, r.Meta.IssueDate)
		if err != nil {
			t, err = time.Parse(time.RFC3339, r.Meta.IssueDate)
			if err != nil {
				return invoicer.InvoiceRecord{}, fmt.Errorf("invalid issue date %q", r.Meta.IssueDate)
			}
		}
		issued = t
	}

	rec := invoicer.InvoiceRecord{
		Company:   r.Company,
		Meta:      invoicer.InvoiceMeta{Number: r.Meta.Number, IssueDate: issued},
		Client:    r.Client,
		LineItems: r.LineItems,
		Pricing:   r.Pricing,
	}
	return rec.Normalize(), nil
}

// GenerateInvoice runs the export pipeline and streams the PDF back as an
// attachment. Concurrent exports are refused with 409.
func (h *handlers) GenerateInvoice(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice payload"})
		return
	}

	rec, err := req.toRecord()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec = h.resolveAssetRefs(rec)

	pdf, err := h.exporter.Export(c.Request.Context(), rec)
	if err != nil {
		if errors.Is(err, invoicer.ErrExportInFlight) {
			c.JSON(http.StatusConflict, gin.H{"error": "An export is already in progress"})
			return
		}
		h.logger.Error("invoice export failed", zap.String("number", rec.Meta.Number), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Invoice export failed"})
		return
	}

	name := h.exporter.Filename(rec)
	h.logger.Info("invoice exported",
		zap.String("number", rec.Meta.Number),
		zap.String("filename", name),
		zap.Int("bytes", len(pdf)))

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// resolveAssetRefs rewrites /uploads/ references to file:// URLs so the
// headless browser can load them from the captured page, which is served
// from a temp file rather than this server.
func (h *handlers) resolveAssetRefs(rec invoicer.InvoiceRecord) invoicer.InvoiceRecord {
	company := rec.Company
	company.LogoRef = h.resolveRef(store.KindLogo, company.LogoRef)
	company.StampRef = h.resolveRef(store.KindStamp, company.StampRef)
	return rec.WithCompany(company)
}

func (h *handlers) resolveRef(kind store.Kind, ref string) string {
	if !strings.HasPrefix(ref, "/uploads/") {
		return ref
	}
	asset, err := h.assets.Get(kind)
	if err != nil || asset == nil {
		return ""
	}
	abs, err := filepath.Abs(filepath.Join(h.assets.BlobDir(), asset.Filename))
	if err != nil {
		return ""
	}
	return "file://" + abs
}
