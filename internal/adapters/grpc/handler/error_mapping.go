package handler

import (
	"context"
	"errors"
	"sort"
	"strconv"

	"github.com/ogurasousui/worklog-review/internal/core/verification"
	"github.com/ogurasousui/worklog-review/internal/core/workentry"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorDomain は ErrorInfo に設定するドメインです。
const ErrorDomain = "worklog.review"

type statusMapping struct {
	code   codes.Code
	reason string
}

var statusMappings = map[workentry.Code]statusMapping{
	workentry.CodeValidation:           {codes.InvalidArgument, "VALIDATION_FAILED"},
	workentry.CodeNotFound:             {codes.NotFound, "NOT_FOUND"},
	workentry.CodeNotAuthorized:        {codes.PermissionDenied, "NOT_AUTHORIZED"},
	workentry.CodeEmploymentInactive:   {codes.PermissionDenied, "EMPLOYMENT_INACTIVE"},
	workentry.CodeVerificationRequired: {codes.FailedPrecondition, "VERIFICATION_REQUIRED"},
	workentry.CodeImmutableRecord:      {codes.FailedPrecondition, "IMMUTABLE_RECORD"},
	workentry.CodeInvalidTransition:    {codes.FailedPrecondition, "INVALID_TRANSITION"},
}

func toStatusError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	mapping, ok := statusMappings[workentry.CodeOf(err)]
	if !ok {
		return status.Error(codes.Internal, "internal error")
	}

	st := status.New(mapping.code, err.Error())
	info := &errdetails.ErrorInfo{
		Reason:   mapping.reason,
		Domain:   ErrorDomain,
		Metadata: errorMetadata(err),
	}

	var verr *workentry.ValidationError
	if errors.As(err, &verr) {
		withDetails, detailErr := st.WithDetails(info, badRequest(verr))
		if detailErr != nil {
			return st.Err()
		}
		return withDetails.Err()
	}

	withDetails, detailErr := st.WithDetails(info)
	if detailErr != nil {
		return st.Err()
	}
	return withDetails.Err()
}

func errorMetadata(err error) map[string]string {
	var (
		terr *workentry.TransitionError
		verr *verification.Error
	)
	switch {
	case errors.As(err, &terr):
		return map[string]string{
			"work_entry_id": terr.ID,
			"review_status": string(terr.From),
			"action":        string(terr.Action),
			"concurrent":    strconv.FormatBool(terr.Concurrent),
		}
	case errors.As(err, &verr):
		return map[string]string{
			"organization_id":     verr.OrganizationID,
			"verification_status": string(verr.Observed),
		}
	default:
		return nil
	}
}

func badRequest(verr *workentry.ValidationError) *errdetails.BadRequest {
	fields := make([]string, 0, len(verr.Fields))
	for f := range verr.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	br := &errdetails.BadRequest{}
	for _, f := range fields {
		br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
			Field:       f,
			Description: verr.Fields[f],
		})
	}
	return br
}

func invalidField(field, reason string) error {
	return &workentry.ValidationError{Fields: map[string]string{field: reason}}
}
