package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	"github.com/campfirenet/meshsim/datarecording"
	"github.com/campfirenet/meshsim/instrumentation"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("events", func() {
	var path string

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "events.sqlite3")

		recorder := datarecording.New(path)
		recorder.CreateTable(instrumentation.LinkEventsTable,
			instrumentation.LinkEventEntry{})

		entries := []instrumentation.LinkEventEntry{
			{ID: "evt-1", Link: "a<->b", Kind: "begin_connect",
				Initiator: "a", Outcome: "pending", Release: 0.3},
			{ID: "evt-2", Link: "a<->b", Kind: "begin_connect",
				Initiator: "b", Outcome: "connected", Release: 0.4},
			{ID: "evt-3", Link: "a<->c", Kind: "send",
				Initiator: "a", Outcome: "delivered", Release: 0.2,
				Bytes: 30},
		}
		for _, e := range entries {
			recorder.InsertData(instrumentation.LinkEventsTable, e)
		}

		Expect(recorder.Close()).To(Succeed())
	})

	printLines := func(opts eventsOptions) []string {
		reader, err := datarecording.NewReader(path)
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()

		out := bytes.NewBuffer(nil)
		Expect(printEvents(context.Background(), reader, opts, out)).
			To(Succeed())

		return strings.Split(strings.TrimSpace(out.String()), "\n")
	}

	It("should print all events by release time", func() {
		lines := printLines(eventsOptions{})

		Expect(lines).To(HaveLen(4))
		Expect(lines[0]).To(ContainSubstring(`"ID":"evt-3"`))
		Expect(lines[3]).To(Equal("3 of 3 events"))
	})

	It("should filter by link and outcome", func() {
		lines := printLines(eventsOptions{link: "a<->b", outcome: "connected"})

		Expect(lines).To(HaveLen(2))
		Expect(lines[0]).To(ContainSubstring(`"Initiator":"b"`))
		Expect(lines[1]).To(Equal("1 of 1 events"))
	})

	It("should page through events", func() {
		lines := printLines(eventsOptions{limit: 1, offset: 1})

		Expect(lines).To(HaveLen(2))
		Expect(lines[0]).To(ContainSubstring(`"ID":"evt-1"`))
		Expect(lines[1]).To(Equal("1 of 3 events"))
	})
})
