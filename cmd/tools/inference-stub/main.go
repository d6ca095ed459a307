// Command inference-stub serves the uniform inference backend over gRPC so
// kitti-reader can run end to end without a trained model.
//
// Usage:
//
//	go run ./cmd/tools/inference-stub [-addr localhost:50051] [-classes 20] [-labels labels.yaml]
package main

import (
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/banshee-data/kittiscan/internal/fsutil"
	"github.com/banshee-data/kittiscan/internal/kitti/inference"
)

func main() {
	addr := flag.String("addr", "localhost:50051", "Listen address")
	classes := flag.Int("classes", 20, "Number of classes per point")
	labels := flag.String("labels", "", "semantic-kitti label YAML (built-in defaults when empty)")
	flag.Parse()

	meta := inference.DefaultMetadata()
	if *labels != "" {
		var err error
		meta, err = inference.LoadMetadata(fsutil.OSFileSystem{}, *labels)
		if err != nil {
			log.Fatalf("Failed to load labels: %v", err)
		}
	}

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", *addr, err)
	}

	srv := grpc.NewServer()
	inference.RegisterServer(srv, inference.NewUniform(*classes, meta))

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Printf("Shutting down...")
		srv.GracefulStop()
	}()

	log.Printf("Inference stub serving %s on %s (%d classes)", inference.ServiceName, lis.Addr(), *classes)
	if err := srv.Serve(lis); err != nil {
		log.Fatalf("Serve failed: %v", err)
	}
}
