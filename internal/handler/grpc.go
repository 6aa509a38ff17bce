package handler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/MikhailRaia/urlshort/internal/model"
	"github.com/MikhailRaia/urlshort/internal/service"
	"github.com/MikhailRaia/urlshort/internal/storage"
)

type ShortenerGRPCServer struct {
	urlService URLService
}

func NewShortenerGRPCServer(urlService URLService) *ShortenerGRPCServer {
	return &ShortenerGRPCServer{
		urlService: urlService,
	}
}

func (s *ShortenerGRPCServer) Shorten(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "long url is required")
	}

	url, err := s.urlService.Shorten(ctx, req.GetValue())
	if err != nil && !errors.Is(err, storage.ErrURLExists) {
		if errors.Is(err, service.ErrInvalidURL) {
			return nil, status.Error(codes.InvalidArgument, msgInvalidURL)
		}
		log.Error().Err(err).Msg("Failed to shorten URL over gRPC")
		return nil, status.Error(codes.Internal, msgServerError)
	}

	resp, err := urlToStruct(url)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return resp, nil
}

func (s *ShortenerGRPCServer) Resolve(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "code is required")
	}

	longURL, err := s.urlService.Resolve(ctx, req.GetValue())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, status.Error(codes.NotFound, msgNotFound)
		}
		log.Error().Err(err).Str("code", req.GetValue()).Msg("Failed to resolve code over gRPC")
		return nil, status.Error(codes.Internal, msgServerError)
	}

	return wrapperspb.String(longURL), nil
}

func (s *ShortenerGRPCServer) Ping(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.urlService.Ping(ctx); err != nil {
		return nil, status.Errorf(codes.Internal, "storage unavailable: %v", err)
	}
	return &emptypb.Empty{}, nil
}

func urlToStruct(url model.URL) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"id":       url.ID,
		"urlCode":  url.Code,
		"longUrl":  url.LongURL,
		"shortUrl": url.ShortURL,
		"clicks":   float64(url.Clicks),
		"date":     url.CreatedAt.Format(time.RFC3339),
	})
}
