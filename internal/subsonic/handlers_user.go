package subsonic

import (
	"lms/internal/catalog"
)

func renderUser(n *Node, u *catalog.User) {
	n.AttrString("username", u.LoginName)
	n.AttrBool("adminRole", u.Type == catalog.UserAdmin)
	n.AttrBool("settingsRole", true)
	n.AttrBool("streamRole", true)
	n.AttrBool("downloadRole", true)
	n.AttrBool("uploadRole", false)
	n.AttrBool("playlistRole", true)
	n.AttrBool("coverArtRole", true)
	n.AttrBool("commentRole", false)
	n.AttrBool("podcastRole", false)
	n.AttrBool("shareRole", false)
	n.AttrBool("videoConversionRole", false)
	n.AttrBool("scrobblingEnabled", true)
	if u.MaximumBitrate > 0 {
		n.AttrInt("maxBitRate", int64(u.MaximumBitrate))
	}
}

func handleGetUser(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	username, perr := rc.RequireParam("username")
	if perr != nil {
		return perr.(*APIError)
	}
	u, err := catalog.FindUserByLoginName(tx, username)
	if err != nil {
		return ErrInternal(err.Error())
	}
	if u == nil {
		return ErrDataNotFound()
	}
	renderUser(resp.Root.Child("user"), u)
	return nil
}

func handleGetUsers(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	requester, err := catalog.FindUser(tx, rc.UserID)
	if err != nil {
		return ErrInternal(err.Error())
	}
	if requester == nil || requester.Type != catalog.UserAdmin {
		return ErrUserNotAuthorized()
	}
	root := resp.Root.Child("users")
	return withAPIError(catalog.FindUsers(tx, catalog.UserFindParameters{SortMethod: catalog.UserSortLoginName}, func(u *catalog.User) error {
		renderUser(root.AddArrayItem("user"), u)
		return nil
	}))
}

func (e *Endpoints) handleCreateUser(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	requester, err := catalog.FindUser(tx, rc.UserID)
	if err != nil {
		return ErrInternal(err.Error())
	}
	if requester == nil || requester.Type != catalog.UserAdmin {
		return ErrUserNotAuthorized()
	}
	username, perr := rc.RequireParam("username")
	if perr != nil {
		return perr.(*APIError)
	}
	password, perr := rc.RequireParam("password")
	if perr != nil {
		return perr.(*APIError)
	}
	if password == username {
		return ErrPasswordMustMatchLoginName()
	}
	existing, err := catalog.FindUserByLoginName(tx, username)
	if err != nil {
		return ErrInternal(err.Error())
	}
	if existing != nil {
		return ErrUserAlreadyExists(username)
	}
	encrypted, err := EncryptPassword(e.auth.Pepper, password)
	if err != nil {
		return ErrInternal(err.Error())
	}
	userType := catalog.UserRegular
	if rc.ParamBoolDefault("adminRole", false) {
		userType = catalog.UserAdmin
	}
	u := &catalog.User{LoginName: username, PasswordHash: encrypted, Type: userType}
	if err := catalog.CreateUser(tx, u); err != nil {
		return ErrInternal(err.Error())
	}
	return nil
}

func (e *Endpoints) handleUpdateUser(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	requester, err := catalog.FindUser(tx, rc.UserID)
	if err != nil {
		return ErrInternal(err.Error())
	}
	if requester == nil || requester.Type != catalog.UserAdmin {
		return ErrUserNotAuthorized()
	}
	username, perr := rc.RequireParam("username")
	if perr != nil {
		return perr.(*APIError)
	}
	u, err := catalog.FindUserByLoginName(tx, username)
	if err != nil {
		return ErrInternal(err.Error())
	}
	if u == nil {
		return ErrDataNotFound()
	}
	if password := rc.Param("password"); password != "" {
		encrypted, err := EncryptPassword(e.auth.Pepper, password)
		if err != nil {
			return ErrInternal(err.Error())
		}
		u.PasswordHash = encrypted
	}
	if maxBitRate := rc.Param("maxBitRate"); maxBitRate != "" {
		n, perr := rc.ParamIntDefault("maxBitRate", 0)
		if perr != nil {
			return perr.(*APIError)
		}
		u.MaximumBitrate = int(n)
	}
	if err := catalog.SaveUser(tx, u); err != nil {
		return ErrInternal(err.Error())
	}
	return nil
}

func handleDeleteUser(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	requester, err := catalog.FindUser(tx, rc.UserID)
	if err != nil {
		return ErrInternal(err.Error())
	}
	if requester == nil || requester.Type != catalog.UserAdmin {
		return ErrUserNotAuthorized()
	}
	username, perr := rc.RequireParam("username")
	if perr != nil {
		return perr.(*APIError)
	}
	u, err := catalog.FindUserByLoginName(tx, username)
	if err != nil {
		return ErrInternal(err.Error())
	}
	if u == nil {
		return ErrDataNotFound()
	}
	if err := catalog.DeleteUser(tx, u.ID); err != nil {
		return ErrInternal(err.Error())
	}
	return nil
}

func (e *Endpoints) handleChangePassword(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	username, perr := rc.RequireParam("username")
	if perr != nil {
		return perr.(*APIError)
	}
	password, perr := rc.RequireParam("password")
	if perr != nil {
		return perr.(*APIError)
	}
	requester, err := catalog.FindUser(tx, rc.UserID)
	if err != nil {
		return ErrInternal(err.Error())
	}
	if requester == nil {
		return ErrUserNotAuthorized()
	}
	if requester.LoginName != username && requester.Type != catalog.UserAdmin {
		return ErrUserNotAuthorized()
	}
	target := requester
	if requester.LoginName != username {
		target, err = catalog.FindUserByLoginName(tx, username)
		if err != nil {
			return ErrInternal(err.Error())
		}
		if target == nil {
			return ErrDataNotFound()
		}
	}
	encrypted, err := EncryptPassword(e.auth.Pepper, password)
	if err != nil {
		return ErrInternal(err.Error())
	}
	target.PasswordHash = encrypted
	if err := catalog.SaveUser(tx, target); err != nil {
		return ErrInternal(err.Error())
	}
	return nil
}
