package server

import (
	"strconv"
	"strings"

	"lms/internal/catalog"
	"lms/internal/streaming"
	"lms/internal/subsonic"

	"github.com/gofiber/fiber/v2"
)

// dispatcher answers every /rest/:method request: it resolves
// credentials, runs the matched handler inside a read or write
// transaction, and serializes the resulting response tree (or, for the
// three binary endpoints, drives a streaming.ResourceHandler directly).
type dispatcher struct {
	store          *catalog.Store
	endpoints      *subsonic.Endpoints
	subsonicConfig subsonic.Config
}

func (d *dispatcher) handle(c *fiber.Ctx) error {
	method := strings.TrimSuffix(c.Params("method"), ".view")

	rawQuery := string(c.Request().URI().QueryString())
	rc, err := subsonic.BuildContext(rawQuery, &d.subsonicConfig)
	if err != nil {
		return d.writeError(c, "xml", subsonic.ErrBadParameter("v"))
	}

	session, release, err := d.store.Pool().Borrow(c.Context())
	if err != nil {
		return d.writeError(c, rc.Format, subsonic.ErrInternal(err.Error()))
	}
	defer release()

	creds := subsonic.Credentials{
		Username: rc.Param("u"),
		Password: rc.Param("p"),
		Token:    rc.Param("t"),
		Salt:     rc.Param("s"),
		APIKey:   rc.Param("apiKey"),
	}
	if trusted := c.Get("X-Remote-User"); trusted != "" {
		creds.TrustedUsername = trusted
	}

	var authErr *subsonic.APIError
	if err := session.ReadTransaction(c.Context(), func(tx *catalog.Tx) error {
		userID, outcome, err := subsonic.ResolveCredentials(c.Context(), tx, d.subsonicConfig.Auth, creds)
		if err != nil {
			return err
		}
		if outcome != subsonic.AuthOK {
			authErr = subsonic.AuthOutcomeError(outcome)
			return nil
		}
		rc.UserID = userID
		return nil
	}); err != nil {
		return d.writeError(c, rc.Format, subsonic.ErrInternal(err.Error()))
	}
	if authErr != nil {
		return d.writeError(c, rc.Format, authErr)
	}

	if binaryHandler, ok := d.endpoints.LookupBinary(method); ok {
		return d.handleBinary(c, session, rc, binaryHandler)
	}

	handler, write, ok := d.endpoints.Lookup(method)
	if !ok {
		return d.writeError(c, rc.Format, subsonic.ErrUnknownEntryPoint(method))
	}

	resp := rc.NewResponse()
	runTx := session.ReadTransaction
	if write {
		runTx = session.WriteTransaction
	}
	var apiErr *subsonic.APIError
	if err := runTx(c.Context(), func(tx *catalog.Tx) error {
		apiErr = handler(tx, rc, resp)
		return nil
	}); err != nil {
		return d.writeError(c, rc.Format, subsonic.ErrInternal(err.Error()))
	}
	if apiErr != nil {
		resp.ApplyError(apiErr)
	}

	return d.writeResponse(c, rc.Format, resp)
}

func (d *dispatcher) writeResponse(c *fiber.Ctx, format string, resp *subsonic.Response) error {
	if format == "json" {
		c.Set(fiber.HeaderContentType, "application/json")
		return c.Send(subsonic.SerializeJSON(resp))
	}
	c.Set(fiber.HeaderContentType, "application/xml")
	return c.Send(subsonic.SerializeXML(resp))
}

func (d *dispatcher) writeError(c *fiber.Ctx, format string, apiErr *subsonic.APIError) error {
	resp := subsonic.NewResponse("failed", subsonic.DefaultServerVersion.String(), d.subsonicConfig.ServerVersion, false)
	resp.ApplyError(apiErr)
	return d.writeResponse(c, format, resp)
}

// handleBinary drives /stream, /download, and /getCoverArt's two-call
// resumable protocol: Open supplies headers and the first chunk, Next
// is called until done. A nil handler/error pair from the endpoint
// means the resource doesn't exist and is reported as a bare 404, not
// a Subsonic XML/JSON error envelope.
func (d *dispatcher) handleBinary(c *fiber.Ctx, session *catalog.Session, rc *subsonic.RequestContext, h subsonic.BinaryHandler) error {
	var resourceHandler streaming.ResourceHandler
	var apiErr *subsonic.APIError
	if err := session.ReadTransaction(c.Context(), func(tx *catalog.Tx) error {
		resourceHandler, apiErr = h(tx, rc)
		return nil
	}); err != nil {
		return d.writeError(c, rc.Format, subsonic.ErrInternal(err.Error()))
	}
	if apiErr != nil {
		return d.writeError(c, rc.Format, apiErr)
	}
	if resourceHandler == nil {
		return c.SendStatus(fiber.StatusNotFound)
	}
	defer resourceHandler.Close()

	if fh, ok := resourceHandler.(*streaming.FileResourceHandler); ok {
		applyRangeHeader(fh, c.Get(fiber.HeaderRange))
	}

	meta, chunk, done, err := resourceHandler.Open()
	if err != nil {
		if err == streaming.ErrNotFound {
			return c.SendStatus(fiber.StatusNotFound)
		}
		return d.writeError(c, rc.Format, subsonic.ErrInternal(err.Error()))
	}

	c.Set(fiber.HeaderContentType, meta.ContentType)
	if meta.AcceptRanges {
		c.Set(fiber.HeaderAcceptRanges, "bytes")
	}
	if meta.ContentLength >= 0 {
		c.Set(fiber.HeaderContentLength, strconv.FormatInt(meta.ContentLength, 10))
	}

	return writeChunks(c, chunk, done, resourceHandler)
}

// writeChunks streams the already-opened resourceHandler's remaining
// chunks directly onto the connection rather than buffering the
// whole body.
func writeChunks(c *fiber.Ctx, first []byte, done bool, rh streaming.ResourceHandler) error {
	w := c.Context().Response.BodyWriter()
	if len(first) > 0 {
		if _, err := w.Write(first); err != nil {
			return err
		}
	}
	for !done {
		chunk, next, err := rh.Next()
		if err != nil {
			return err
		}
		done = next
		if len(chunk) > 0 {
			if _, err := w.Write(chunk); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyRangeHeader parses a "bytes=start-end" Range header and
// restricts fh's served window accordingly; a malformed or absent
// header leaves fh serving the whole file.
func applyRangeHeader(fh *streaming.FileResourceHandler, header string) {
	if header == "" {
		return
	}
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return
	}
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return
	}
	start, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return
	}
	if parts[1] == "" {
		fh.RangeStart = start
		fh.RangeLen = -1
		return
	}
	end, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || end < start {
		return
	}
	fh.RangeStart = start
	fh.RangeLen = end - start + 1
}
