package service

import (
	commonerrors "github.com/seonho/rest-security-jwt/internal/common/errors"
)

var (
	ErrBadCredentials = commonerrors.NewDomainError(
		"INVALID_CREDENTIALS",
		commonerrors.CategoryUnauthorized,
		401,
		"invalid username or password",
	)

	ErrUsernameTaken = commonerrors.NewDomainError(
		"USERNAME_TAKEN",
		commonerrors.CategoryConflict,
		400,
		"ERROR : USERNAME IS ALREADY TAKEN",
	)

	ErrEmailTaken = commonerrors.NewDomainError(
		"EMAIL_TAKEN",
		commonerrors.CategoryConflict,
		400,
		"Error: Email is already in use!",
	)

	// ErrRoleNotFound signals a missing seed row, a deployment defect rather
	// than a client mistake.
	ErrRoleNotFound = commonerrors.NewDomainError(
		"ROLE_NOT_FOUND",
		commonerrors.CategoryInternal,
		500,
		"Error: Role is not found.",
	)

	ErrInvalidAccessToken = commonerrors.NewDomainError(
		"INVALID_ACCESS_TOKEN",
		commonerrors.CategoryUnauthorized,
		401,
		"token is not valid",
	)

	ErrAccessTokenExpired = commonerrors.NewDomainError(
		"ACCESS_TOKEN_EXPIRED",
		commonerrors.CategoryUnauthorized,
		401,
		"access token expired",
	)

	ErrRefreshTokenNotFound = commonerrors.NewDomainError(
		"REFRESH_TOKEN_NOT_FOUND",
		commonerrors.CategoryForbidden,
		403,
		"Refresh token is not in database!",
	)

	ErrRefreshTokenExpired = commonerrors.NewDomainError(
		"REFRESH_TOKEN_EXPIRED",
		commonerrors.CategoryForbidden,
		403,
		"Refresh token was expired. Please make a new signin request",
	)

	ErrRefreshTokenEmpty = commonerrors.NewDomainError(
		"REFRESH_TOKEN_EMPTY",
		commonerrors.CategoryValidation,
		400,
		"Refresh Token is empty!",
	)

	ErrUnauthenticated = commonerrors.NewDomainError(
		"UNAUTHENTICATED",
		commonerrors.CategoryUnauthorized,
		401,
		"full authentication is required to access this resource",
	)
)
