// Copyright 2025 visey Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/emicklei/go-restful/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/visey-io/visey/base/log"
	"github.com/visey-io/visey/client"
	"github.com/visey-io/visey/config"
	"github.com/visey-io/visey/logics"
	"github.com/visey-io/visey/server"
	"github.com/visey-io/visey/storage/cache"
	"github.com/visey-io/visey/storage/data"
	"github.com/visey-io/visey/tasks"
)

var viseyCommand = &cobra.Command{
	Use:   "visey",
	Short: "The visey recommendation service.",
	Run: func(cmd *cobra.Command, args []string) {
		// setup logger
		debugMode, _ := cmd.PersistentFlags().GetBool("debug")
		log.SetLogger(cmd.PersistentFlags(), debugMode)
		defer log.CloseLogger()
		// load config
		configPath, _ := cmd.PersistentFlags().GetString("config")
		conf, err := config.LoadConfig(configPath)
		if err != nil {
			log.Logger().Fatal("failed to load config",
				zap.String("config", configPath), zap.Error(err))
		}
		// open feedback store
		database, err := data.Open(conf.Database.DSN, conf.Database.TablePrefix)
		if err != nil {
			log.Logger().Fatal("failed to connect feedback store",
				zap.String("dsn", log.RedactDBURL(conf.Database.DSN)), zap.Error(err))
		}
		if err = database.Init(); err != nil {
			log.Logger().Fatal("failed to init feedback store", zap.Error(err))
		}
		defer database.Close()
		// open resource cache
		resourceCache, err := cache.Open(conf.Cache.RedisURL, conf.Cache.TTL)
		if err != nil {
			log.Logger().Fatal("failed to open resource cache", zap.Error(err))
		}
		defer resourceCache.Close()
		// catalog source
		var catalog *client.WordPressClient
		if conf.WordPress.BaseURL != "" {
			catalog = client.NewWordPressClient(conf.WordPress)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go tasks.NewCatalogSync(catalog, resourceCache, conf.WordPress.SyncInterval).Run(ctx)
		}
		// embedder
		var embedder logics.Embedder
		if conf.Recommend.OpenAIAPIKey != "" {
			embedder = logics.NewOpenAIEmbedder(conf.Recommend.OpenAIAPIKey, conf.Recommend.EmbeddingModel)
		}
		// graceful shutdown
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigs
			log.Logger().Info("shutting down", zap.String("signal", sig.String()))
			if err := database.Close(); err != nil {
				log.Logger().Error("failed to close feedback store", zap.Error(err))
			}
			if err := resourceCache.Close(); err != nil {
				log.Logger().Error("failed to close resource cache", zap.Error(err))
			}
			log.CloseLogger()
			os.Exit(0)
		}()
		// start server
		s := &server.RestServer{
			Config:        conf,
			DataClient:    database,
			ResourceCache: resourceCache,
			Recommender:   logics.NewRecommender(conf.Recommend, database, embedder),
			WebService:    new(restful.WebService),
		}
		if catalog != nil {
			s.Catalog = catalog
		}
		s.StartHttpServer()
	},
}

func init() {
	viseyCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	viseyCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	log.AddFlags(viseyCommand.PersistentFlags())
}

func main() {
	if err := viseyCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
