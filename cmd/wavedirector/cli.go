package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cluckworks/wavedirector/internal/api"
	"github.com/cluckworks/wavedirector/internal/config"
	"github.com/cluckworks/wavedirector/internal/content"
	"github.com/cluckworks/wavedirector/internal/storage"
	"github.com/spf13/viper"
)

// cacheID returns the id given on the command line, else the one named by
// the content file.
func cacheID(args []string) string {
	if len(args) > 0 {
		return storage.NormalizeID(args[0])
	}
	cnt, err := content.Load(viper.GetString("contentPath"), SlogManager.Component("content"))
	if err != nil || cnt.Campaign == nil {
		return storage.DefaultCacheID
	}
	return storage.NormalizeID(cnt.Campaign.CacheID)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func cacheCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("cache: expected show, clear or upload")
	}
	action := strings.ToLower(args[0])
	id := cacheID(args[1:])

	db, err := openDatabase()
	if err != nil {
		Logger.Warn("Database unavailable", "error", err)
		db = nil
	}
	if db != nil {
		defer db.Close()
	}
	store := openCacheStore(db)
	defer store.Close()

	switch action {
	case "show":
		file := store.Load(id)
		if file == nil {
			return fmt.Errorf("no cache stored for %q", id)
		}
		return printJSON(file)

	case "clear":
		store.Delete(id)
		fmt.Printf("Cleared cache %q\n", id)
		return nil

	case "upload":
		file := store.Load(id)
		if file == nil {
			return fmt.Errorf("no cache stored for %q", id)
		}
		apiCfg := config.GetAPIConfig()
		client := api.New(apiCfg.ServerURL, apiCfg.APIKey, apiCfg.Timeout)

		ctx := context.Background()
		if err := client.Healthcheck(ctx); err != nil {
			return fmt.Errorf("progress server is offline: %w", err)
		}
		if err := client.UploadCache(ctx, file); err != nil {
			return err
		}
		Logger.Info("Uploaded wave cache", "cacheId", id, "waves", file.WaveCount)
		fmt.Printf("Uploaded cache %q (%d waves)\n", id, file.WaveCount)
		return nil

	default:
		return fmt.Errorf("cache: unknown action %q", action)
	}
}

func progressCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("progress: expected show or reset")
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	svc, err := openProgress(db)
	if err != nil {
		return err
	}

	switch strings.ToLower(args[0]) {
	case "show":
		return printJSON(svc.Snapshot())
	case "reset":
		svc.ResetCampaignProgress()
		fmt.Printf("Campaign progress reset for %q\n", svc.ProfileID())
		return nil
	default:
		return fmt.Errorf("progress: unknown action %q", args[0])
	}
}
