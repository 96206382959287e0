package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "task.v1.TaskService"

// TaskServiceServer is the server side of task.v1.TaskService. Requests and
// task payloads travel as google.protobuf.Struct.
type TaskServiceServer interface {
	ListTasks(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateTask(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	DeleteTask(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	ToggleComplete(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

var TaskServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TaskServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("ListTasks", TaskServiceServer.ListTasks),
		unaryMethod("GetTask", TaskServiceServer.GetTask),
		unaryMethod("CreateTask", TaskServiceServer.CreateTask),
		unaryMethod("UpdateTask", TaskServiceServer.UpdateTask),
		unaryMethod("DeleteTask", TaskServiceServer.DeleteTask),
		unaryMethod("ToggleComplete", TaskServiceServer.ToggleComplete),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "task/v1/task.proto",
}

func RegisterTaskServiceServer(s grpc.ServiceRegistrar, srv TaskServiceServer) {
	s.RegisterService(&TaskServiceDesc, srv)
}

func unaryMethod[Resp any](name string, call func(TaskServiceServer, context.Context, *structpb.Struct) (Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TaskServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(TaskServiceServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// TaskServiceClient calls task.v1.TaskService over a client connection.
type TaskServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewTaskServiceClient(cc grpc.ClientConnInterface) *TaskServiceClient {
	return &TaskServiceClient{cc: cc}
}

func (c *TaskServiceClient) ListTasks(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/ListTasks", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TaskServiceClient) GetTask(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetTask", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TaskServiceClient) CreateTask(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/CreateTask", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TaskServiceClient) UpdateTask(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/UpdateTask", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TaskServiceClient) DeleteTask(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/DeleteTask", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TaskServiceClient) ToggleComplete(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/ToggleComplete", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
