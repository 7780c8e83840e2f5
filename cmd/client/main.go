package main

import (
	"context"
	"fmt"
	"os"

	"github.com/MKhiriev/go-sync15/internal/client"
	"github.com/MKhiriev/go-sync15/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	root := client.NewRootCommand(models.NewAppBuildInfo(buildVersion, buildDate, buildCommit))
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
