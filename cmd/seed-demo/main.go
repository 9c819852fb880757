// 演示数据写入工具：向 DATA_DIR 快照写入若干评论与服务请求，便于本地联调
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"mapable-api/internal/store"
	filestore "mapable-api/internal/store/file"
)

func strPtr(s string) *string { return &s }

func main() {
	_ = godotenv.Load(".env")
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}

	reviews := filestore.NewReviewStore(dataDir)
	requests := filestore.NewRequestStore(dataDir)
	if err := reviews.Initialize(); err != nil {
		fmt.Println("init error:", err)
		os.Exit(1)
	}
	if err := requests.Initialize(); err != nil {
		fmt.Println("init error:", err)
		os.Exit(1)
	}

	ctx := context.Background()
	demoReviews := []store.ReviewInput{
		{
			LocationID: "boston-public-library",
			Latitude:   42.3493, Longitude: -71.0782,
			Title:   "Great ramp access",
			Content: "Main entrance has a wide ramp and automatic doors.",
			Rating:  5, Author: "demo",
			Tags: []string{"ramp", "automatic-doors"},
		},
		{
			LocationID: "boston-public-library",
			Latitude:   42.3493, Longitude: -71.0782,
			Title:   "Elevator out of service",
			Content: "Third floor elevator was down during my visit.",
			Rating:  3, Author: "demo",
			Tags: []string{"elevator"},
		},
		{
			LocationID: "faneuil-hall",
			Latitude:   42.3601, Longitude: -71.0542,
			Title:   "Cobblestones are rough",
			Content: "Wheelchair users should approach from the north plaza.",
			Rating:  2, Author: "demo",
			Tags: []string{"surface"},
		},
	}
	for _, in := range demoReviews {
		r, err := reviews.CreateReview(ctx, in)
		if err != nil {
			fmt.Println("review error:", err)
			continue
		}
		fmt.Println("review created:", r.ReviewID)
	}

	demoRequests := []store.RequestInput{
		{
			RequestType: "ramp",
			LocationID:  strPtr("faneuil-hall"),
			Latitude:    42.3601, Longitude: -71.0542,
			Address:     "4 S Market St, Boston, MA",
			Description: "Temporary ramp needed at the east entrance.",
			Priority:    "high", RequesterName: "demo",
		},
		{
			RequestType: "signage",
			Latitude:    42.3554, Longitude: -71.0640,
			Address:     "Boston Common",
			Description: "Accessible-route signage missing near the frog pond.",
			RequesterName: "demo",
			RequesterEmail: strPtr("demo@example.com"),
		},
	}
	for _, in := range demoRequests {
		req, err := requests.CreateRequest(ctx, in)
		if err != nil {
			fmt.Println("request error:", err)
			continue
		}
		fmt.Println("request created:", req.RequestID, req.Status, req.Priority)
	}
}
