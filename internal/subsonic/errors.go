package subsonic

import "fmt"

// Code is the Subsonic wire error code taxonomy. The
// numeric values are normative: clients branch on them.
type Code int

const (
	CodeGeneric                           Code = 0
	CodeRequiredParameterMissing          Code = 10
	CodeClientMustUpgrade                 Code = 20
	CodeServerMustUpgrade                 Code = 30
	CodeWrongUsernameOrPassword           Code = 40
	CodeTokenAuthNotSupportedForLDAPUsers Code = 41
	CodeAuthMechanismNotSupported         Code = 42
	CodeConflictingAuthMechanismsProvided Code = 43
	CodeInvalidAPIKey                     Code = 44
	CodeUserNotAuthorized                 Code = 50
	CodeRequestedDataNotFound             Code = 70
)

// APIError is the typed error every handler signals through; never a
// bare string. Handlers translate domain/store errors into one of
// these explicitly; translation is never implicit.
type APIError struct {
	Code    Code
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("subsonic: [%d] %s", e.Code, e.Message)
}

func NewAPIError(code Code, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// Generic sub-messages (all wire code 0).
func ErrNotImplemented(what string) *APIError {
	return NewAPIError(CodeGeneric, what+" is not implemented")
}

func ErrUnknownEntryPoint(path string) *APIError {
	return NewAPIError(CodeGeneric, "unknown entry point: "+path)
}

func ErrBadParameter(param string) *APIError {
	return NewAPIError(CodeGeneric, "bad parameter: "+param)
}

func ErrParameterValueTooHigh(param string) *APIError {
	return NewAPIError(CodeGeneric, param+" exceeds the maximum allowed value")
}

func ErrInternal(detail string) *APIError {
	return NewAPIError(CodeGeneric, "internal error: "+detail)
}

func ErrLoginThrottled() *APIError {
	return NewAPIError(CodeGeneric, "login throttled")
}

func ErrUserAlreadyExists(name string) *APIError {
	return NewAPIError(CodeGeneric, "user already exists: "+name)
}

func ErrPasswordTooWeak() *APIError {
	return NewAPIError(CodeGeneric, "password too weak")
}

func ErrPasswordMustMatchLoginName() *APIError {
	return NewAPIError(CodeGeneric, "password must not match login name")
}

func ErrRequiredParameterMissing(param string) *APIError {
	return NewAPIError(CodeRequiredParameterMissing, "required parameter missing: "+param)
}

func ErrClientMustUpgrade() *APIError {
	return NewAPIError(CodeClientMustUpgrade, "client must upgrade")
}

func ErrServerMustUpgrade() *APIError {
	return NewAPIError(CodeServerMustUpgrade, "server must upgrade")
}

func ErrWrongUsernameOrPassword() *APIError {
	return NewAPIError(CodeWrongUsernameOrPassword, "wrong username or password")
}

func ErrTokenAuthNotSupportedForLDAPUsers() *APIError {
	return NewAPIError(CodeTokenAuthNotSupportedForLDAPUsers, "token authentication is not supported for LDAP users")
}

func ErrAuthMechanismNotSupported() *APIError {
	return NewAPIError(CodeAuthMechanismNotSupported, "provided authentication mechanism not supported")
}

func ErrConflictingAuthMechanisms() *APIError {
	return NewAPIError(CodeConflictingAuthMechanismsProvided, "multiple conflicting authentication mechanisms provided")
}

func ErrInvalidAPIKey() *APIError {
	return NewAPIError(CodeInvalidAPIKey, "invalid API key")
}

func ErrUserNotAuthorized() *APIError {
	return NewAPIError(CodeUserNotAuthorized, "user is not authorized for the requested operation")
}

func ErrDataNotFound() *APIError {
	return NewAPIError(CodeRequestedDataNotFound, "the requested data was not found")
}

// ToResponse builds a status=failed response envelope carrying err's
// code/message as the <error> node.
func (e *APIError) ToResponse(protocolVersion, serverVersion string, openSubsonic bool) *Response {
	resp := NewResponse("failed", protocolVersion, serverVersion, openSubsonic)
	errNode := resp.Root.Child("error")
	errNode.AttrInt("code", int64(e.Code))
	errNode.AttrString("message", e.Message)
	return resp
}
