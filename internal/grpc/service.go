package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "draftengine.v1.DraftService"

// DraftServiceServer is the server API for the draft service. Requests and
// responses are JSON-shaped structpb.Struct messages using the HTTP API's field names.
type DraftServiceServer interface {
	CreateDraft(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListDrafts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetState(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteDraft(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MakePick(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListPlayers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAdvice(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SimulateAvailability(context.Context, *structpb.Struct) (*structpb.Struct, error)
	NextPickLine(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SearchPlayers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StreamEvents(*structpb.Struct, grpc.ServerStream) error
}

type unaryMethod func(DraftServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, m unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return m(srv.(DraftServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return m(srv.(DraftServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func streamEventsHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DraftServiceServer).StreamEvents(in, stream)
}

// DraftServiceDesc describes the draft service for grpc.Server.RegisterService
var DraftServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DraftServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateDraft", DraftServiceServer.CreateDraft),
		unary("ListDrafts", DraftServiceServer.ListDrafts),
		unary("GetState", DraftServiceServer.GetState),
		unary("DeleteDraft", DraftServiceServer.DeleteDraft),
		unary("MakePick", DraftServiceServer.MakePick),
		unary("ListPlayers", DraftServiceServer.ListPlayers),
		unary("GetAdvice", DraftServiceServer.GetAdvice),
		unary("SimulateAvailability", DraftServiceServer.SimulateAvailability),
		unary("NextPickLine", DraftServiceServer.NextPickLine),
		unary("SearchPlayers", DraftServiceServer.SearchPlayers),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamEvents",
			Handler:       streamEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "draftengine/v1/draft.proto",
}

// RegisterDraftServiceServer registers srv on s
func RegisterDraftServiceServer(s grpc.ServiceRegistrar, srv DraftServiceServer) {
	s.RegisterService(&DraftServiceDesc, srv)
}

// Client calls the draft service
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a client connection
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes a unary method by name
func (c *Client) Call(ctx context.Context, method string, req map[string]interface{}, opts ...grpc.CallOption) (map[string]interface{}, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

// StreamEvents opens the event stream. Receive with RecvMsg into a *structpb.Struct.
func (c *Client) StreamEvents(ctx context.Context, req map[string]interface{}, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	stream, err := c.cc.NewStream(ctx, &DraftServiceDesc.Streams[0], "/"+ServiceName+"/StreamEvents", opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return stream, nil
}
