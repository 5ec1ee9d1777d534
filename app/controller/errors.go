package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-shop/app/factory"
	"github.com/vibast-solutions/ms-go-shop/app/provider"
	"github.com/vibast-solutions/ms-go-shop/app/service"
	"github.com/vibast-solutions/ms-go-shop/app/types"
)

const (
	codeAmbiguousOutcome = "payment_outcome_ambiguous"
	codeProviderError    = "provider_error"

	internalErrorMessage = "Internal server error"
)

func writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Success: false, Error: message})
}

// writeServiceError maps caller mistakes to 400 and everything else to 500.
func writeServiceError(ctx echo.Context, logger *logrus.Entry, err error, op string) error {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		return writeError(ctx, http.StatusBadRequest, validationErr.Error())
	}

	entry := factory.LoggerWithContext(logger, ctx).WithError(err)

	var ambiguous *provider.AmbiguousOutcomeError
	if errors.As(err, &ambiguous) {
		entry.Errorf("%s failed with an ambiguous outcome", op)
		return ctx.JSON(http.StatusInternalServerError, &types.ErrorResponse{
			Error: "Payment outcome is unknown, check the wallet before retrying",
			Code:  codeAmbiguousOutcome,
		})
	}

	var providerErr *provider.ProviderError
	if errors.As(err, &providerErr) {
		entry.Errorf("%s failed at provider", op)
		return ctx.JSON(http.StatusInternalServerError, &types.ErrorResponse{
			Error: internalErrorMessage,
			Code:  codeProviderError,
		})
	}

	entry.Errorf("%s failed", op)
	return writeError(ctx, http.StatusInternalServerError, internalErrorMessage)
}
