package chat

import "github.com/google/generative-ai-go/genai"

// 系统提示词：限定助手角色与信息收集要求
const systemInstruction = `You are MapAble Assistant, an AI helper for MapAble Boston - an accessibility-focused application that helps people find and rate accessible places in Boston.

Your capabilities:
1. Answer questions about accessibility in Boston and the MapAble app
2. Help users request accessibility improvements (ramps, parking, signage, restrooms, etc.)
3. Assist in submitting accessibility reviews for locations
4. Search and query existing location reviews and ratings

Guidelines:
- Be friendly, helpful, and empathetic
- Always ask for required information before creating service requests or reviews
- For service requests, you need: type, location (lat/lng), address, description, requester name
- For reviews, you need: location_id, location (lat/lng), title, content, rating (1-5), author name
- Provide helpful suggestions about accessibility in Boston
- Be concise but informative

When users want to create a service request or review, guide them through the process step by step.`

// 远端模型可调用的操作目录；四个操作与本地存储接口一一对应
// 约束：目录是封闭的——新增操作必须同时扩展 Dispatcher 的分发表
func functionDeclarations() []*genai.FunctionDeclaration {
	return []*genai.FunctionDeclaration{
		{
			Name:        "create_service_request",
			Description: "Create a new accessibility service request for improvements like ramps, parking, signage, or restrooms",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"request_type": {
						Type:        genai.TypeString,
						Description: "Type of request",
						Enum:        []string{"ramp", "parking", "signage", "restroom", "other"},
					},
					"latitude":  {Type: genai.TypeNumber, Description: "Location latitude"},
					"longitude": {Type: genai.TypeNumber, Description: "Location longitude"},
					"address":   {Type: genai.TypeString, Description: "Street address of the location"},
					"description": {
						Type:        genai.TypeString,
						Description: "Detailed description of the accessibility need",
					},
					"requester_name": {
						Type:        genai.TypeString,
						Description: "Name of the person making the request",
					},
					"priority": {
						Type:        genai.TypeString,
						Description: "Priority level (defaults to medium if not specified)",
						Enum:        []string{"low", "medium", "high"},
					},
					"requester_email": {Type: genai.TypeString, Description: "Email address (optional)"},
				},
				Required: []string{"request_type", "latitude", "longitude", "address", "description", "requester_name"},
			},
		},
		{
			Name:        "create_review",
			Description: "Create an accessibility review for a location",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"location_id": {Type: genai.TypeString, Description: "Unique identifier for the location"},
					"latitude":    {Type: genai.TypeNumber, Description: "Location latitude"},
					"longitude":   {Type: genai.TypeNumber, Description: "Location longitude"},
					"title":       {Type: genai.TypeString, Description: "Review title"},
					"content":     {Type: genai.TypeString, Description: "Detailed review content"},
					"rating": {
						Type:        genai.TypeInteger,
						Description: "Rating from 1-5 stars (must be between 1 and 5)",
					},
					"author": {Type: genai.TypeString, Description: "Name of the reviewer"},
					"tags": {
						Type:        genai.TypeArray,
						Items:       &genai.Schema{Type: genai.TypeString},
						Description: "Optional tags (e.g., wheelchair-accessible, ramp, elevator)",
					},
				},
				Required: []string{"location_id", "latitude", "longitude", "title", "content", "rating", "author"},
			},
		},
		{
			Name:        "search_locations",
			Description: "Search for locations with accessibility reviews",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"latitude":  {Type: genai.TypeNumber, Description: "Search center latitude (optional)"},
					"longitude": {Type: genai.TypeNumber, Description: "Search center longitude (optional)"},
					"radius_miles": {
						Type:        genai.TypeNumber,
						Description: "Search radius in miles (defaults to 5.0 if not specified)",
					},
				},
			},
		},
		{
			Name:        "get_location_reviews",
			Description: "Get all accessibility reviews for a specific location",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"location_id": {Type: genai.TypeString, Description: "The location identifier"},
				},
				Required: []string{"location_id"},
			},
		},
	}
}
