package docs

import "github.com/swaggo/swag"

// @title Turbo Essen Delivery Tracking API
// @version 1.0
// @description Live courier location relay for the Turbo Essen platform
// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
var SwaggerInfo = &swag.Spec{
	Version:     "1.0",
	Host:        "localhost:8080",
	BasePath:    "/api/v1",
	Title:       "Turbo Essen Delivery Tracking API",
	Description: "Live courier location relay for the Turbo Essen platform",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
