package main

import (
	"context"
	"flag"
	"os"

	"github.com/Luismorlan/honeybee/app_config"
	"github.com/Luismorlan/honeybee/server"
	. "github.com/Luismorlan/honeybee/utils"
	"github.com/Luismorlan/honeybee/utils/dotenv"
	. "github.com/Luismorlan/honeybee/utils/flag"
	. "github.com/Luismorlan/honeybee/utils/log"
)

const adminTokenEnvKey = "ADMIN_TOKEN"

func cleanup() {
	CloseProfiler()
	CloseTracer()
	Log.Info("api server shutdown")
}

func main() {
	flag.Parse()
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
	InitLogger()

	StartTracer()
	if IsProdEnv() {
		if err := StartProfiler(); err != nil {
			Log.Errorf("fail to start profiler: %s", err)
		}
	}
	defer cleanup()

	config, err := app_config.ParseHoneybeeAppConfig(AppConfigPath)
	if err != nil {
		Log.Fatalf("fail to parse app config %s: %s", AppConfigPath, err)
	}

	statsdClient, err := app_config.NewDogStatsdClient()
	if err != nil {
		Log.Fatal(err)
	}
	defer statsdClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := app_config.BuildComponents(ctx, config, statsdClient)
	if err != nil {
		Log.Fatalf("fail to build components: %s", err)
	}
	defer components.Close()
	if components.Pool != nil {
		go components.Pool.Maintain(ctx)
	}

	adminToken := os.Getenv(adminTokenEnvKey)
	if adminToken == "" {
		Log.Warnf("%s is not set, admin routes are disabled", adminTokenEnvKey)
	}

	handlers := server.NewHandlers(components.Aggregator, components.Cache, components.Monitor, components.Pool)
	router := server.NewRouter(handlers, ServiceName, adminToken)

	Log.Info("api server starts up")
	if err := router.Run(":8080"); err != nil {
		Log.Errorf("api server stopped: %s", err)
	}
}
