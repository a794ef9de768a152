package service

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// errorCodeToGRPCCode maps MyError codes to gRPC status codes.
func errorCodeToGRPCCode(code string) codes.Code {
	switch code {
	case ErrBadParameter:
		return codes.InvalidArgument
	case ErrEntityNotFound:
		return codes.NotFound
	case ErrNotAuthenticated:
		return codes.Unauthenticated
	case ErrFatalAdmission:
		return codes.PermissionDenied
	case ErrTransientRecord, ErrOrchestrationRace:
		return codes.Unavailable
	case ErrConflict:
		return codes.AlreadyExists
	case ErrInternalServerError:
		return codes.Internal
	default:
		return codes.Unknown
	}
}

// MyErrorToGRPC converts an error to a gRPC status error. MyError is mapped to the corresponding
// gRPC code and message; errors that already carry a status pass through; anything else becomes
// codes.Unknown with "internal error".
func MyErrorToGRPC(err error) error {
	if err == nil {
		return nil
	}
	if myErr := ToMyError(err); myErr != nil {
		return status.Error(errorCodeToGRPCCode(myErr.Code), myErr.Message)
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codes.Unknown, "internal error")
}

// MyErrorToGRPCInterceptor returns a unary server interceptor that converts handler errors to
// gRPC status errors and logs them.
func MyErrorToGRPCInterceptor(logger log.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			if myErr := ToMyError(err); myErr != nil {
				level.Info(logger).Log(
					"msg", "gRPC handler error",
					"method", info.FullMethod,
					"error_code", myErr.Code,
					"error_message", myErr.Message,
					"error", err,
				)
			} else {
				level.Debug(logger).Log(
					"msg", "gRPC handler error",
					"method", info.FullMethod,
					"err", err,
				)
			}
			err = MyErrorToGRPC(err)
		}
		return resp, err
	}
}
