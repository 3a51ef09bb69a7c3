package grpcsvc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	// ServiceName - полное имя gRPC-сервиса витрины.
	ServiceName = "storefront.v1.StorefrontService"
	protoFile   = "storefront/v1/storefront.proto"
)

// Имена методов сервиса.
const (
	MethodCreateSession      = "CreateSession"
	MethodGetSession         = "GetSession"
	MethodListCatalog        = "ListCatalog"
	MethodSelectForMannequin = "SelectForMannequin"
	MethodSetHovered         = "SetHovered"
	MethodAddToCart          = "AddToCart"
	MethodAddOutfitToCart    = "AddOutfitToCart"
	MethodRemoveFromCart     = "RemoveFromCart"
	MethodGetTotal           = "GetTotal"
	MethodSetView            = "SetView"
	MethodToggleTheme        = "ToggleTheme"
)

// StorefrontServer - серверная сторона storefront.v1.StorefrontService.
// Сообщения - well-known типы protobuf, поэтому сгенерированный код не нужен.
type StorefrontServer interface {
	CreateSession(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetSession(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListCatalog(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	SelectForMannequin(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	SetHovered(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	AddToCart(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	AddOutfitToCart(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	RemoveFromCart(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetTotal(context.Context, *emptypb.Empty) (*wrapperspb.Int64Value, error)
	SetView(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ToggleTheme(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// StorefrontServiceDesc описывает сервис для grpc.Server.
var StorefrontServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StorefrontServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodCreateSession, newEmpty, StorefrontServer.CreateSession),
		unary(MethodGetSession, newEmpty, StorefrontServer.GetSession),
		unary(MethodListCatalog, newEmpty, StorefrontServer.ListCatalog),
		unary(MethodSelectForMannequin, newString, StorefrontServer.SelectForMannequin),
		unary(MethodSetHovered, newString, StorefrontServer.SetHovered),
		unary(MethodAddToCart, newString, StorefrontServer.AddToCart),
		unary(MethodAddOutfitToCart, newEmpty, StorefrontServer.AddOutfitToCart),
		unary(MethodRemoveFromCart, newString, StorefrontServer.RemoveFromCart),
		unary(MethodGetTotal, newEmpty, StorefrontServer.GetTotal),
		unary(MethodSetView, newString, StorefrontServer.SetView),
		unary(MethodToggleTheme, newEmpty, StorefrontServer.ToggleTheme),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: protoFile,
}

// RegisterStorefrontServer регистрирует реализацию на сервере.
func RegisterStorefrontServer(registrar grpc.ServiceRegistrar, srv StorefrontServer) {
	registrar.RegisterService(&StorefrontServiceDesc, srv)
}

// FullMethod возвращает "/storefront.v1.StorefrontService/<method>".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func newEmpty() *emptypb.Empty {
	return &emptypb.Empty{}
}

func newString() *wrapperspb.StringValue {
	return &wrapperspb.StringValue{}
}

// unary строит MethodDesc так же, как это делает protoc-gen-go-grpc.
func unary[Req, Resp proto.Message](
	name string,
	newReq func() Req,
	call func(StorefrontServer, context.Context, Req) (Resp, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(StorefrontServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(StorefrontServer), ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// methodTypes - типы запроса и ответа каждого метода для файлового дескриптора.
var methodTypes = []struct {
	name    string
	in, out proto.Message
}{
	{MethodCreateSession, &emptypb.Empty{}, &structpb.Struct{}},
	{MethodGetSession, &emptypb.Empty{}, &structpb.Struct{}},
	{MethodListCatalog, &emptypb.Empty{}, &structpb.ListValue{}},
	{MethodSelectForMannequin, &wrapperspb.StringValue{}, &structpb.Struct{}},
	{MethodSetHovered, &wrapperspb.StringValue{}, &structpb.Struct{}},
	{MethodAddToCart, &wrapperspb.StringValue{}, &structpb.Struct{}},
	{MethodAddOutfitToCart, &emptypb.Empty{}, &structpb.Struct{}},
	{MethodRemoveFromCart, &wrapperspb.StringValue{}, &structpb.Struct{}},
	{MethodGetTotal, &emptypb.Empty{}, &wrapperspb.Int64Value{}},
	{MethodSetView, &wrapperspb.StringValue{}, &structpb.Struct{}},
	{MethodToggleTheme, &emptypb.Empty{}, &structpb.Struct{}},
}

// Регистрируем дескриптор сервиса, чтобы reflection и grpcurl видели методы.
func init() {
	if err := registerFileDescriptor(protoregistry.GlobalFiles); err != nil {
		panic(err)
	}
}

func registerFileDescriptor(files *protoregistry.Files) error {
	if _, err := files.FindFileByPath(protoFile); err == nil {
		return nil
	}

	fd, err := protodesc.NewFile(buildFileDescriptorProto(), files)
	if err != nil {
		return fmt.Errorf("build %s descriptor: %w", protoFile, err)
	}
	if err := files.RegisterFile(fd); err != nil {
		return fmt.Errorf("register %s descriptor: %w", protoFile, err)
	}
	return nil
}

func buildFileDescriptorProto() *descriptorpb.FileDescriptorProto {
	deps := map[string]struct{}{}
	methods := make([]*descriptorpb.MethodDescriptorProto, 0, len(methodTypes))
	for _, m := range methodTypes {
		in := m.in.ProtoReflect().Descriptor()
		out := m.out.ProtoReflect().Descriptor()
		deps[in.ParentFile().Path()] = struct{}{}
		deps[out.ParentFile().Path()] = struct{}{}
		methods = append(methods, &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(m.name),
			InputType:  proto.String(qualified(in.FullName())),
			OutputType: proto.String(qualified(out.FullName())),
		})
	}

	dependencies := make([]string, 0, len(deps))
	for _, path := range []string{
		"google/protobuf/empty.proto",
		"google/protobuf/struct.proto",
		"google/protobuf/wrappers.proto",
	} {
		if _, ok := deps[path]; ok {
			dependencies = append(dependencies, path)
		}
	}

	return &descriptorpb.FileDescriptorProto{
		Name:       proto.String(protoFile),
		Package:    proto.String("storefront.v1"),
		Dependency: dependencies,
		Syntax:     proto.String("proto3"),
		Options: &descriptorpb.FileOptions{
			GoPackage: proto.String("github.com/vladislavdragonenkov/storefront/internal/service/grpc;grpcsvc"),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name:   proto.String("StorefrontService"),
			Method: methods,
		}},
	}
}

func qualified(name protoreflect.FullName) string {
	return "." + string(name)
}
