package domain

import "errors"

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrNotAuthenticated = errors.New("not authenticated")
var ErrForbidden = errors.New("action not permitted for role")
var ErrUnknownProject = errors.New("task references a project not in the local cache")
var ErrUnknownAssignee = errors.New("task references a user not in the local cache")
var ErrDateRange = errors.New("project end date precedes start date")
var ErrBadDate = errors.New("date is not in YYYY-MM-DD format")
