package backend

import (
	"fmt"
	"sync"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

// rpcMethod is a unary method resolved from the catalog service schema.
type rpcMethod struct {
	fullName string
	input    protoreflect.MessageDescriptor
	output   protoreflect.MessageDescriptor
}

// grpcSchema holds the methods the adapter calls, keyed by "service/method".
type grpcSchema map[string]rpcMethod

var loadGRPCSchema = sync.OnceValues(buildGRPCSchema)

func buildGRPCSchema() (grpcSchema, error) {
	files := []*descriptorpb.FileDescriptorProto{
		protoFile("user",
			[]*descriptorpb.DescriptorProto{
				message("Empty"),
				message("UserById", scalar("id", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32)),
				message("User",
					scalar("id", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32),
					scalar("name", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					scalar("age", 3, descriptorpb.FieldDescriptorProto_TYPE_INT32),
				),
				message("UserList", repeated("users", 1, ".user.User")),
				message("Playlist",
					scalar("id", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32),
					scalar("name", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				),
				message("PlaylistList", repeated("playlists", 1, ".user.Playlist")),
			},
			service("UserService",
				method("FindAll", ".user.Empty", ".user.UserList"),
				method("FindPlaylists", ".user.UserById", ".user.PlaylistList"),
			),
		),
		protoFile("music",
			[]*descriptorpb.DescriptorProto{
				message("Empty"),
				message("Music",
					scalar("id", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32),
					scalar("name", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					scalar("artist", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				),
				message("MusicList", repeated("musics", 1, ".music.Music")),
			},
			service("MusicService",
				method("FindAll", ".music.Empty", ".music.MusicList"),
			),
		),
		protoFile("playlist",
			[]*descriptorpb.DescriptorProto{
				message("PlaylistById", scalar("id", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32)),
				message("Music",
					scalar("id", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32),
					scalar("name", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					scalar("artist", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				),
				message("MusicList", repeated("musics", 1, ".playlist.Music")),
			},
			service("PlaylistService",
				method("FindMusics", ".playlist.PlaylistById", ".playlist.MusicList"),
			),
		),
	}

	schema := make(grpcSchema)

	for _, fdp := range files {
		fd, err := protodesc.NewFile(fdp, new(protoregistry.Files))
		if err != nil {
			return nil, fmt.Errorf("building %s descriptor: %w", fdp.GetName(), err)
		}

		services := fd.Services()
		for i := 0; i < services.Len(); i++ {
			svc := services.Get(i)
			methods := svc.Methods()

			for j := 0; j < methods.Len(); j++ {
				m := methods.Get(j)
				key := string(svc.FullName()) + "/" + string(m.Name())

				schema[key] = rpcMethod{
					fullName: "/" + key,
					input:    m.Input(),
					output:   m.Output(),
				}
			}
		}
	}

	return schema, nil
}

func protoFile(pkg string, messages []*descriptorpb.DescriptorProto, services ...*descriptorpb.ServiceDescriptorProto) *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:        proto.String(pkg + ".proto"),
		Package:     proto.String(pkg),
		Syntax:      proto.String("proto3"),
		MessageType: messages,
		Service:     services,
	}
}

func message(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{Name: proto.String(name), Field: fields}
}

func scalar(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		JsonName: proto.String(name),
		Number:   proto.Int32(number),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     typ.Enum(),
	}
}

func repeated(name string, number int32, typeName string) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		JsonName: proto.String(name),
		Number:   proto.Int32(number),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum(),
		Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
		TypeName: proto.String(typeName),
	}
}

func service(name string, methods ...*descriptorpb.MethodDescriptorProto) *descriptorpb.ServiceDescriptorProto {
	return &descriptorpb.ServiceDescriptorProto{Name: proto.String(name), Method: methods}
}

func method(name, input, output string) *descriptorpb.MethodDescriptorProto {
	return &descriptorpb.MethodDescriptorProto{
		Name:       proto.String(name),
		InputType:  proto.String(input),
		OutputType: proto.String(output),
	}
}
