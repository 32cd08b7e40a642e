// Package eventstream serves outbound session events to local subscribers over gRPC.
package eventstream

import (
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName     = "koe.events.v1.Events"
	subscribeMethod = "/" + ServiceName + "/Subscribe"

	// queueSize bounds the events buffered per subscriber.
	queueSize = 64
)

// eventsServer is the handler contract behind serviceDesc.
type eventsServer interface {
	subscribe(*emptypb.Empty, grpc.ServerStream) error
}

// The service uses well-known message types only (Empty in, Struct out), so the
// descriptor is declared here instead of generated.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*eventsServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "koe/events/v1/events.proto",
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(eventsServer).subscribe(in, stream)
}
