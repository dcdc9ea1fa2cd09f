package play

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the play service.
const ServiceName = "storyloom.play.v1.PlayService"

const (
	methodStart      = "/" + ServiceName + "/Start"
	methodContinue   = "/" + ServiceName + "/Continue"
	methodChoose     = "/" + ServiceName + "/Choose"
	methodSave       = "/" + ServiceName + "/Save"
	methodLoad       = "/" + ServiceName + "/Load"
	methodSwitchFlow = "/" + ServiceName + "/SwitchFlow"
)

// PlayServiceServer is the server API of the play service. Every message
// is a google.protobuf.Struct.
type PlayServiceServer interface {
	Start(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Continue(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Choose(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Save(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Load(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SwitchFlow(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterPlayServiceServer registers srv on s.
func RegisterPlayServiceServer(s grpc.ServiceRegistrar, srv PlayServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

type unaryMethod func(PlayServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PlayServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(PlayServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PlayServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Start", Handler: unaryHandler(methodStart, PlayServiceServer.Start)},
		{MethodName: "Continue", Handler: unaryHandler(methodContinue, PlayServiceServer.Continue)},
		{MethodName: "Choose", Handler: unaryHandler(methodChoose, PlayServiceServer.Choose)},
		{MethodName: "Save", Handler: unaryHandler(methodSave, PlayServiceServer.Save)},
		{MethodName: "Load", Handler: unaryHandler(methodLoad, PlayServiceServer.Load)},
		{MethodName: "SwitchFlow", Handler: unaryHandler(methodSwitchFlow, PlayServiceServer.SwitchFlow)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storyloom/play/v1/play.proto",
}

// PlayServiceClient is the client API of the play service.
type PlayServiceClient interface {
	Start(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Continue(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Choose(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Save(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Load(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	SwitchFlow(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type playServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewPlayServiceClient creates a client bound to cc.
func NewPlayServiceClient(cc grpc.ClientConnInterface) PlayServiceClient {
	return &playServiceClient{cc: cc}
}

func (c *playServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *playServiceClient) Start(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodStart, in, opts)
}

func (c *playServiceClient) Continue(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodContinue, in, opts)
}

func (c *playServiceClient) Choose(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodChoose, in, opts)
}

func (c *playServiceClient) Save(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodSave, in, opts)
}

func (c *playServiceClient) Load(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodLoad, in, opts)
}

func (c *playServiceClient) SwitchFlow(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodSwitchFlow, in, opts)
}
