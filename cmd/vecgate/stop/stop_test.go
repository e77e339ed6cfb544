package stopcmder_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	stopcmder "github.com/papercomputeco/vecgate/cmd/vecgate/stop"
	"github.com/papercomputeco/vecgate/pkg/cliui"
)

var _ = Describe("stop command", func() {
	var (
		server *httptest.Server
		hits   atomic.Int32
		status int
		out    *bytes.Buffer
	)

	BeforeEach(func() {
		hits.Store(0)
		status = http.StatusOK
		out = &bytes.Buffer{}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/stop" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			hits.Add(1)
			w.WriteHeader(status)
			if status == http.StatusOK {
				_, _ = w.Write([]byte("Stopping..."))
			} else {
				_, _ = w.Write([]byte("Server is not running"))
			}
		}))
		DeferCleanup(server.Close)
	})

	run := func() error {
		cmd := stopcmder.NewStopCmd()
		cmd.SetOut(out)
		cmd.SetArgs([]string{"--url", server.URL + "/"})
		return cmd.Execute()
	}

	It("posts to /stop and reports success", func() {
		Expect(run()).To(Succeed())
		Expect(hits.Load()).To(Equal(int32(1)))
		Expect(out.String()).To(ContainSubstring(cliui.SuccessMark))
	})

	It("surfaces the gateway's refusal", func() {
		status = http.StatusBadRequest

		err := run()
		Expect(err).To(MatchError("gateway refused stop (400): Server is not running"))
		Expect(out.String()).To(ContainSubstring(cliui.FailMark))
	})
})
