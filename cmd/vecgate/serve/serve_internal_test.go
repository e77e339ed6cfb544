package servecmder

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vecgate/pkg/config"
	"github.com/papercomputeco/vecgate/pkg/eventstream/worker"
	"github.com/papercomputeco/vecgate/pkg/eventstream/nop"
	"github.com/papercomputeco/vecgate/pkg/logger"
)

var _ = Describe("splitBrokers", func() {
	It("splits and trims a comma separated list", func() {
		Expect(splitBrokers(" a:9092, b:9092 ,,")).To(Equal([]string{"a:9092", "b:9092"}))
	})

	It("returns nil for an empty list", func() {
		Expect(splitBrokers("")).To(BeNil())
	})
})

var _ = Describe("newPublisher", func() {
	var cmder *ServeCommander

	BeforeEach(func() {
		cmder = &ServeCommander{
			cfg:    config.NewDefaultConfig(),
			logger: logger.Nop(),
		}
	})

	It("defaults to the nop publisher", func() {
		p, err := cmder.newPublisher()
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&nop.Publisher{}))
	})

	It("builds a pooled kafka publisher when brokers are configured", func() {
		cmder.cfg.Events.Provider = "kafka"
		cmder.cfg.Events.Brokers = "localhost:9092"

		p, err := cmder.newPublisher()
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&worker.Pool{}))
		Expect(p.Close()).To(Succeed())
	})

	It("requires brokers for kafka", func() {
		cmder.cfg.Events.Provider = "kafka"

		_, err := cmder.newPublisher()
		Expect(err).To(MatchError(ContainSubstring("kafka brokers are required")))
	})

	It("rejects unknown providers", func() {
		cmder.cfg.Events.Provider = "nats"

		_, err := cmder.newPublisher()
		Expect(err).To(MatchError("unsupported events provider: nats"))
	})
})

var _ = Describe("initLogger", func() {
	var (
		cmder   *ServeCommander
		console *os.File
		dir     string
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		var err error
		console, err = os.Create(filepath.Join(dir, "console.log"))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(console.Close)

		cmder = &ServeCommander{cfg: config.NewDefaultConfig()}
	})

	It("logs only to the console without a log file", func() {
		closeLog, err := cmder.initLogger(console)
		Expect(err).NotTo(HaveOccurred())
		defer closeLog()

		cmder.logger.Info("gateway ready")

		b, err := os.ReadFile(console.Name())
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(ContainSubstring("gateway ready"))
	})

	It("tees JSON lines into the configured log file", func() {
		cmder.cfg.Log.File = filepath.Join(dir, "vecgate.jsonl")

		closeLog, err := cmder.initLogger(console)
		Expect(err).NotTo(HaveOccurred())
		cmder.logger.Info("gateway ready", "port", 5000)
		closeLog()

		b, err := os.ReadFile(console.Name())
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(ContainSubstring("gateway ready"))

		b, err = os.ReadFile(cmder.cfg.Log.File)
		Expect(err).NotTo(HaveOccurred())
		var line map[string]any
		Expect(json.Unmarshal([]byte(strings.TrimSpace(string(b))), &line)).To(Succeed())
		Expect(line["msg"]).To(Equal("gateway ready"))
		Expect(line["port"]).To(BeEquivalentTo(5000))
	})

	It("fails when the log file cannot be opened", func() {
		cmder.cfg.Log.File = filepath.Join(dir, "missing", "vecgate.jsonl")

		_, err := cmder.initLogger(console)
		Expect(err).To(MatchError(ContainSubstring("opening log file")))
	})
})
