package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hamed0406/flvexporter/internal/config"
)

var _ = Describe("Config", func() {
	var tempDir string

	writeConfig := func(content string) string {
		path := filepath.Join(tempDir, "config.yaml")
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
		os.Unsetenv("FLV_CHECK_TIMEOUT")
		os.Unsetenv("FLV_CHECK_THREADS")
	})

	Describe("Load", func() {
		Context("with a valid config file", func() {
			var path string

			BeforeEach(func() {
				path = writeConfig(`
server:
  address: ":9400"
logging:
  dir: "` + tempDir + `"
  level: debug
flv:
  check:
    timeout: 2000
    threads: 4
    retries: 2
    interval: 15000
  urls:
    ProjectA:
      - https://cdn.example.com/live/room1.flv
      - https://cdn.example.com/live/room2.flv
    projectB:
      - http://origin.example.com:8080/hls/cam.flv
`)
			})

			It("should load values and defaults", func() {
				cfg, err := config.Load(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Server.Address).To(Equal(":9400"))
				Expect(cfg.Logging.Level).To(Equal("debug"))
				Expect(cfg.Flv.Check.Timeout()).To(Equal(2 * time.Second))
				Expect(cfg.Flv.Check.Threads).To(Equal(4))
				Expect(cfg.Flv.Check.Retries).To(Equal(2))
				Expect(cfg.Flv.Check.Interval()).To(Equal(15 * time.Second))
				Expect(cfg.Flv.Check.RetryDelay()).To(Equal(time.Second))
				Expect(cfg.Flv.Check.ShutdownGrace()).To(Equal(5 * time.Second))
				Expect(cfg.Flv.Check.InsecureSkipVerify).To(BeTrue())
				Expect(cfg.File).To(Equal(path))
			})

			It("should default the round deadline to twice the timeout", func() {
				cfg, err := config.Load(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Flv.Check.RoundDeadline()).To(Equal(4 * time.Second))
			})

			It("should keep project label case and derive targets", func() {
				cfg, err := config.Load(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Flv.URLs).To(HaveKey("ProjectA"))

				targets := cfg.Targets()
				Expect(targets).To(HaveLen(3))
				Expect(targets[0].Name).To(Equal("ProjectA_live_room1"))
				Expect(targets[2].Name).To(Equal("projectB_hls_cam"))
				Expect(targets[2].Description).To(Equal("Stream cam of project projectB"))
			})

			It("should let environment variables override the file", func() {
				os.Setenv("FLV_CHECK_TIMEOUT", "500")
				os.Setenv("FLV_CHECK_THREADS", "16")

				cfg, err := config.Load(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Flv.Check.Timeout()).To(Equal(500 * time.Millisecond))
				Expect(cfg.Flv.Check.Threads).To(Equal(16))
			})
		})

		Context("with invalid values", func() {
			It("should reject bad tunables together", func() {
				path := writeConfig(`
logging:
  level: chatty
flv:
  check:
    timeout: 0
  urls:
    p:
      - ftp://cdn.example.com/live/a.flv
`)
				_, err := config.Load(path)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("Level"))
				Expect(err.Error()).To(ContainSubstring("TimeoutMS"))
				Expect(err.Error()).NotTo(ContainSubstring("ftp://"))
			})

			It("should reject URLs deriving the same stream name", func() {
				path := writeConfig(`
flv:
  urls:
    p:
      - https://one.example.com/live/a.flv
      - https://two.example.com/live/a.mp4
`)
				_, err := config.Load(path)
				Expect(err).To(MatchError(ContainSubstring("p_live_a")))
			})
		})

		Context("with malformed stream URLs", func() {
			It("should load and fall back to hashed names", func() {
				path := writeConfig(`
flv:
  urls:
    P:
      - not-a-url
      - rtmp://cdn.example.com/live/b.flv
      - https://cdn.example.com/live/c.flv
`)
				cfg, err := config.Load(path)
				Expect(err).NotTo(HaveOccurred())

				var names []string
				for _, t := range cfg.Targets() {
					names = append(names, t.Name)
				}
				Expect(names).To(ConsistOf("P_STREAM_177485449", "P_live_b", "P_live_c"))

				warnings := cfg.URLWarnings()
				Expect(warnings).To(HaveLen(2))
				Expect(warnings[0].Error()).To(ContainSubstring("not-a-url"))
				Expect(warnings[1].Error()).To(ContainSubstring("rtmp://"))
			})
		})

		Context("with a missing explicit file", func() {
			It("should return an error", func() {
				_, err := config.Load(filepath.Join(tempDir, "nope.yaml"))
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Read", func() {
		It("should decode without validating", func() {
			path := writeConfig(`
server:
  api_rate_per_min: -1
flv:
  check:
    threads: 0
  urls:
    p:
      - ftp://cdn.example.com/live/a.flv
`)
			cfg, err := config.Read(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Flv.Check.Threads).To(Equal(0))
			Expect(cfg.Server.APIBurst).To(Equal(60))
			Expect(cfg.Flv.URLs).To(HaveKey("p"))

			err = cfg.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("APIRatePerMin"))
			Expect(err.Error()).To(ContainSubstring("Threads"))
		})
	})

	Describe("RoundDeadline", func() {
		It("should prefer the explicit value", func() {
			c := config.CheckConfig{TimeoutMS: 1000, RoundDeadlineMS: 45000}
			Expect(c.RoundDeadline()).To(Equal(45 * time.Second))
		})
	})
})
