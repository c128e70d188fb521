package handler

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/authkeeper/internal/model"
)

func handleError(err error) error {
	switch model.KindOf(err) {
	case model.KindAuth, model.KindSecurity:
		return status.Error(codes.Unauthenticated, err.Error())
	case model.KindValidation:
		return status.Error(codes.InvalidArgument, err.Error())
	case model.KindConflict:
		return status.Error(codes.AlreadyExists, err.Error())
	default:
		return status.Error(codes.Internal, "internal server error")
	}
}
