package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/St1cky1/tasklist/internal/entity"
	"github.com/St1cky1/tasklist/internal/infrastructure/auth"
	"github.com/St1cky1/tasklist/internal/usecase"
	"github.com/St1cky1/tasklist/internal/validation"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// TokenValidator turns a bearer token into a user id.
type TokenValidator interface {
	ValidateAccessToken(token string) (string, error)
}

type GRPCServer struct {
	taskService *usecase.TaskService
	validator   *validation.Validator
	tokens      TokenValidator
	server      *grpc.Server
	health      *health.Server
}

var _ TaskServiceServer = (*GRPCServer)(nil)

func NewGRPCServer(taskService *usecase.TaskService, validator *validation.Validator, tokens TokenValidator) *GRPCServer {
	s := &GRPCServer{
		taskService: taskService,
		validator:   validator,
		tokens:      tokens,
		health:      health.NewServer(),
	}
	s.server = grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.authInterceptor),
	)
	RegisterTaskServiceServer(s.server, s)
	healthpb.RegisterHealthServer(s.server, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s
}

func (s *GRPCServer) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(lis)
}

func (s *GRPCServer) Serve(lis net.Listener) error {
	log.WithField("addr", lis.Addr().String()).Info("gRPC server listening")
	return s.server.Serve(lis)
}

// Stop drains in-flight calls unless ctx expires first.
func (s *GRPCServer) Stop(ctx context.Context) error {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return ctx.Err()
	}
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any,
	info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	entry := log.WithFields(log.Fields{
		"method":   info.FullMethod,
		"code":     status.Code(err).String(),
		"duration": time.Since(start).String(),
	})
	if status.Code(err) == codes.Internal {
		entry.Warn("gRPC call")
	} else {
		entry.Info("gRPC call")
	}
	return resp, err
}

func (s *GRPCServer) authInterceptor(ctx context.Context, req any,
	info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if _, ok := info.Server.(TaskServiceServer); !ok {
		return handler(ctx, req)
	}

	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get("authorization")
	if len(values) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}
	token, ok := auth.BearerToken(values[0])
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}
	userID, err := s.tokens.ValidateAccessToken(token)
	if err != nil {
		log.WithError(err).Debug("rejected token")
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	return handler(auth.WithUserID(ctx, userID), req)
}

func (s *GRPCServer) ListTasks(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	filter := entity.ParseFilter(req.GetFields()["filter"].GetStringValue())
	search := req.GetFields()["search"].GetStringValue()

	tasks, err := s.taskService.ListForUser(ctx, userID, filter, search)
	if err != nil {
		return nil, internalError(err)
	}

	items := make([]any, 0, len(tasks))
	for i := range tasks {
		m, err := taskToMap(&tasks[i])
		if err != nil {
			return nil, internalError(err)
		}
		items = append(items, m)
	}

	out, err := structpb.NewStruct(map[string]any{"tasks": items})
	if err != nil {
		return nil, internalError(err)
	}
	return out, nil
}

func (s *GRPCServer) GetTask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := taskID(req)
	if err != nil {
		return nil, err
	}

	task, found, err := s.taskService.GetByID(ctx, id, userID)
	if err != nil {
		return nil, internalError(err)
	}
	if !found {
		return nil, status.Error(codes.NotFound, entity.ErrTaskNotFound.Error())
	}
	return taskToProto(task)
}

func (s *GRPCServer) CreateTask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	var in validation.CreateTaskRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(&in); err != nil {
		return nil, validationError(err)
	}

	task, err := s.taskService.Create(ctx, in.ToTask(userID))
	if err != nil {
		return nil, internalError(err)
	}
	return taskToProto(task)
}

func (s *GRPCServer) UpdateTask(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := taskID(req)
	if err != nil {
		return nil, err
	}

	var in validation.UpdateTaskRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(&in); err != nil {
		return nil, validationError(err)
	}

	if err := s.taskService.Update(ctx, in.ToTask(id, userID)); err != nil {
		return nil, internalError(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) DeleteTask(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := taskID(req)
	if err != nil {
		return nil, err
	}

	if err := s.taskService.Delete(ctx, id, userID); err != nil {
		return nil, internalError(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) ToggleComplete(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := taskID(req)
	if err != nil {
		return nil, err
	}

	if err := s.taskService.ToggleComplete(ctx, id, userID); err != nil {
		return nil, internalError(err)
	}
	return &emptypb.Empty{}, nil
}

func caller(ctx context.Context) (string, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, entity.ErrUnauthenticated.Error())
	}
	return userID, nil
}

func taskID(req *structpb.Struct) (int, error) {
	v, ok := req.GetFields()["id"]
	if !ok {
		return 0, status.Error(codes.InvalidArgument, "id is required")
	}
	n := v.GetNumberValue()
	if n != math.Trunc(n) || n < 0 || n > entity.MaxTaskID || !entity.ValidTaskID(int(n)) {
		return 0, status.Error(codes.InvalidArgument, "invalid task id")
	}
	return int(n), nil
}

// decode maps the Struct onto a request through its JSON form so the
// field names match the HTTP API.
func decode(req *structpb.Struct, dst any) error {
	raw, err := json.Marshal(req.AsMap())
	if err != nil {
		return status.Error(codes.InvalidArgument, "invalid request")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return status.Error(codes.InvalidArgument, "invalid request: "+err.Error())
	}
	return nil
}

func taskToMap(task *entity.Task) (map[string]any, error) {
	raw, err := json.Marshal(task)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func taskToProto(task *entity.Task) (*structpb.Struct, error) {
	m, err := taskToMap(task)
	if err != nil {
		return nil, internalError(err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, internalError(err)
	}
	return out, nil
}

func validationError(err error) error {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return status.Error(codes.InvalidArgument, verrs.Error())
	}
	return internalError(err)
}

func internalError(err error) error {
	log.WithError(err).Error("task call failed")
	return status.Error(codes.Internal, "internal error")
}
