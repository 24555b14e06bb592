package main

import (
	"flag"
	"log"
	"watermark-backend/audio"
	"watermark-backend/config"
	"watermark-backend/handlers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// MP3 export is optional, everything else works without LAME
	if err := audio.CheckLAME(); err != nil {
		log.Printf("LAME encoder not found, MP3 export disabled: %v", err)
	} else {
		log.Printf("✓ LAME encoder found and ready for MP3 encoding")
	}

	router := gin.Default()
	router.MaxMultipartMemory = cfg.Server.MaxUploadMB << 20

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	corsConfig.ExposeHeaders = []string{
		"Content-Disposition",
		"X-Watermark-SNR",
		"X-Watermark-SNR-Pass",
		"X-Watermark-Frame-Shift",
		"X-Watermark-Embed-Bits",
		"X-Watermark-Effective-Bits",
		"X-Watermark-Capped",
	}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	watermarkHandler := handlers.NewWatermarkHandler(cfg.Watermark, cfg.Server.MaxUploadMB)
	watermarkHandler.Register(router.Group("/api/v1"))

	wm := cfg.Watermark
	log.Printf("Server starting on port %s", cfg.Server.Port)
	log.Printf("API endpoints:")
	log.Printf("  POST /api/v1/watermark/keys     - Generate watermark and secret key")
	log.Printf("  POST /api/v1/watermark/params   - Compute frame parameters for a host")
	log.Printf("  POST /api/v1/watermark/embed    - Embed watermark (returns watermarked audio)")
	log.Printf("  POST /api/v1/watermark/detect   - Detect watermark bits")
	log.Printf("  POST /api/v1/watermark/evaluate - BER and SNR of a detection run")
	log.Printf("  GET  /api/v1/health             - Health check")
	log.Printf("")
	log.Printf("Echo hiding: frame=%d overlap=%.2f strength=%.2f reps=%d delays=%d/%d/%d/%d kernel=%s",
		wm.FrameLength, wm.OverlapFraction, wm.ControlStrength, wm.Reps(),
		wm.Delays.D11, wm.Delays.D10, wm.Delays.D01, wm.Delays.D00, wm.Kernel)

	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
