package subsonic

import (
	"net/url"
	"strconv"

	"lms/internal/ids"
)

// RequestContext is everything a single Subsonic request handler needs
// beyond the catalog transaction itself: the negotiated wire format,
// the resolved caller, and the raw parameter set. One is
// built per incoming request and discarded afterward; it never
// outlives the HTTP handler that created it.
type RequestContext struct {
	Params url.Values

	ClientName    string
	ClientVersion ProtocolVersion

	// Format is "json" when the request carries f=json, else "xml"
	// by format negotiation.
	Format string

	ReportedServerVersion ProtocolVersion
	OpenSubsonicEnabled   bool

	// ServerVersion is LMS's own release version (config's
	// ApiReportedServerVersion), reported as the "serverVersion"
	// attribute, distinct from ReportedServerVersion, which is the
	// Subsonic *protocol* version this client is told to expect.
	ServerVersion string

	UserID ids.Id[ids.UserKind]
}

func (c *RequestContext) Param(key string) string {
	return c.Params.Get(key)
}

func (c *RequestContext) ParamList(key string) []string {
	return c.Params[key]
}

// RequireParam returns ErrRequiredParameterMissing when key is absent.
func (c *RequestContext) RequireParam(key string) (string, error) {
	v := c.Param(key)
	if v == "" {
		return "", ErrRequiredParameterMissing(key)
	}
	return v, nil
}

func (c *RequestContext) ParamIntDefault(key string, def int64) (int64, error) {
	v := c.Param(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, ErrBadParameter(key)
	}
	return n, nil
}

func (c *RequestContext) ParamBoolDefault(key string, def bool) bool {
	v := c.Param(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// NewResponse builds a success response tree carrying this request's
// negotiated protocol version, server version, and OpenSubsonic flag.
func (c *RequestContext) NewResponse() *Response {
	return NewResponse("ok", c.ClientVersion.negotiatedOrServer(c.ReportedServerVersion).String(), c.ServerVersion, c.OpenSubsonicEnabled)
}

// negotiatedOrServer reports the protocol version this response itself
// is framed in: the wire convention is to echo the server's own
// reported version regardless of what the client asked for, so clients
// can detect a mismatch.
func (v ProtocolVersion) negotiatedOrServer(server ProtocolVersion) ProtocolVersion {
	return server
}

// BuildContext parses the raw query parameters into a RequestContext,
// resolving format and version-negotiation fields from cfg. It does
// not authenticate; call ResolveCredentials separately and set UserID.
func BuildContext(rawQuery string, cfg *Config) (*RequestContext, error) {
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, err
	}

	client := params.Get("c")
	format := "xml"
	if params.Get("f") == "json" {
		format = "json"
	}

	clientVersionStr := params.Get("v")
	var clientVersion ProtocolVersion
	if clientVersionStr != "" {
		clientVersion, err = ParseProtocolVersion(clientVersionStr)
		if err != nil {
			return nil, ErrBadParameter("v")
		}
	}

	return &RequestContext{
		Params:                params,
		ClientName:            client,
		ClientVersion:         clientVersion,
		Format:                format,
		ReportedServerVersion: ReportedVersion(client, cfg.OldProtocolClients),
		OpenSubsonicEnabled:   OpenSubsonicEnabled(client, cfg.OpenSubsonicDisabledClients),
		ServerVersion:         cfg.ServerVersion,
	}, nil
}

// Config is the subset of config.Config the context/dispatch layer
// needs, kept independent of the config package's import surface so
// internal/subsonic has no compile-time dependency on process startup.
type Config struct {
	OldProtocolClients          []string
	OpenSubsonicDisabledClients []string
	ServerVersion               string
	Auth                        AuthConfig
}
