package vecgatecmder_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"

	vecgatecmder "github.com/papercomputeco/vecgate/cmd/vecgate"
)

var announceRe = regexp.MustCompile(`\* Running on (http://\d+\.\d+\.\d+\.\d+:\d+)`)

func post(url, body string) (int, string) {
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp.StatusCode, string(data)
}

var _ = Describe("NewVecgateCmd", func() {
	It("registers the subcommands", func() {
		cmd := vecgatecmder.NewVecgateCmd()
		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("serve", "config", "stop", "version"))
	})

	It("prints the version", func() {
		out := gbytes.NewBuffer()
		cmd := vecgatecmder.NewVecgateCmd()
		cmd.SetOut(out)
		cmd.SetArgs([]string{"version"})
		Expect(cmd.Execute()).To(Succeed())
		Expect(out).To(gbytes.Say("Version: dev"))
	})

	It("rejects an unknown index provider before binding", func() {
		cmd := vecgatecmder.NewVecgateCmd()
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		cmd.SetArgs([]string{"--config-dir", GinkgoT().TempDir(), "--index-provider", "faiss"})

		err := cmd.Execute()
		Expect(err).To(MatchError(ContainSubstring("unsupported vector store provider: faiss")))
	})

	It("runs the gateway until /stop", func(ctx SpecContext) {
		out := gbytes.NewBuffer()
		cmd := vecgatecmder.NewVecgateCmd()
		cmd.SetOut(out)
		cmd.SetErr(io.Discard)
		cmd.SetArgs([]string{
			"--config-dir", GinkgoT().TempDir(),
			"--index-provider", "memory",
			"--port", "0",
		})

		done := make(chan error, 1)
		go func() {
			done <- cmd.ExecuteContext(context.Background())
		}()

		Eventually(out, "5s").Should(gbytes.Say(`\* Running on http://127\.0\.0\.1:\d+\n`))
		match := announceRe.FindSubmatch(out.Contents())
		Expect(match).To(HaveLen(2))
		base := string(match[1])

		status, body := post(base+"/add", `{"collection":"docs","ids":["a","b"],"vectors":[[1,0],[0,1]]}`)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(Equal("Success"))

		status, body = post(base+"/query", `{"collection":"docs","vector":[1,0],"return_count":1}`)
		Expect(status).To(Equal(http.StatusOK))
		var result struct {
			IDs []string `json:"ids"`
		}
		Expect(json.Unmarshal([]byte(body), &result)).To(Succeed())
		Expect(result.IDs).To(Equal([]string{"a"}))

		status, body = post(base+"/stop", "")
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(Equal("Stopping..."))

		Eventually(done, "10s").Should(Receive(BeNil()))
	}, SpecTimeout(30*time.Second))
})
