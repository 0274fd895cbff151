package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "donorslot.v1.AppointmentsService"

// AppointmentsServiceServer is the server API for the appointments service.
type AppointmentsServiceServer interface {
	CreateAppointment(context.Context, *CreateAppointmentRequest) (*CreateAppointmentResponse, error)
	CancelAppointment(context.Context, *CancelAppointmentRequest) (*CancelAppointmentResponse, error)
	ListAppointments(context.Context, *ListAppointmentsRequest) (*ListAppointmentsResponse, error)
	ListHistory(context.Context, *ListHistoryRequest) (*ListHistoryResponse, error)
	ListOccupiedSlots(context.Context, *ListOccupiedSlotsRequest) (*ListOccupiedSlotsResponse, error)
}

var AppointmentsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AppointmentsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateAppointment",
			Handler:    unaryHandler("CreateAppointment", AppointmentsServiceServer.CreateAppointment),
		},
		{
			MethodName: "CancelAppointment",
			Handler:    unaryHandler("CancelAppointment", AppointmentsServiceServer.CancelAppointment),
		},
		{
			MethodName: "ListAppointments",
			Handler:    unaryHandler("ListAppointments", AppointmentsServiceServer.ListAppointments),
		},
		{
			MethodName: "ListHistory",
			Handler:    unaryHandler("ListHistory", AppointmentsServiceServer.ListHistory),
		},
		{
			MethodName: "ListOccupiedSlots",
			Handler:    unaryHandler("ListOccupiedSlots", AppointmentsServiceServer.ListOccupiedSlots),
		},
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterAppointmentsServiceServer(s grpc.ServiceRegistrar, srv AppointmentsServiceServer) {
	s.RegisterService(&AppointmentsServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

func unaryHandler[Req, Resp any](method string, call func(AppointmentsServiceServer, context.Context, *Req) (*Resp, error)) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AppointmentsServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod(method),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AppointmentsServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AppointmentsServiceClient calls the appointments service with the JSON codec.
type AppointmentsServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAppointmentsServiceClient(cc grpc.ClientConnInterface) *AppointmentsServiceClient {
	return &AppointmentsServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)
	if err := cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AppointmentsServiceClient) CreateAppointment(ctx context.Context, in *CreateAppointmentRequest, opts ...grpc.CallOption) (*CreateAppointmentResponse, error) {
	return invoke[CreateAppointmentResponse](ctx, c.cc, "CreateAppointment", in, opts)
}

func (c *AppointmentsServiceClient) CancelAppointment(ctx context.Context, in *CancelAppointmentRequest, opts ...grpc.CallOption) (*CancelAppointmentResponse, error) {
	return invoke[CancelAppointmentResponse](ctx, c.cc, "CancelAppointment", in, opts)
}

func (c *AppointmentsServiceClient) ListAppointments(ctx context.Context, in *ListAppointmentsRequest, opts ...grpc.CallOption) (*ListAppointmentsResponse, error) {
	return invoke[ListAppointmentsResponse](ctx, c.cc, "ListAppointments", in, opts)
}

func (c *AppointmentsServiceClient) ListHistory(ctx context.Context, in *ListHistoryRequest, opts ...grpc.CallOption) (*ListHistoryResponse, error) {
	return invoke[ListHistoryResponse](ctx, c.cc, "ListHistory", in, opts)
}

func (c *AppointmentsServiceClient) ListOccupiedSlots(ctx context.Context, in *ListOccupiedSlotsRequest, opts ...grpc.CallOption) (*ListOccupiedSlotsResponse, error) {
	return invoke[ListOccupiedSlotsResponse](ctx, c.cc, "ListOccupiedSlots", in, opts)
}
