package cli

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/CESNET/fdq/flowrec"
	"github.com/CESNET/fdq/session"
	"github.com/CESNET/fdq/statsred"
)

var _ = Describe("Render", func() {
	var (
		fs     flowrec.FieldSet
		schema flowrec.Schema
		result *session.Result
	)

	BeforeEach(func() {
		fs = flowrec.FieldSet{Columns: []flowrec.Column{
			{Field: flowrec.FieldProto, Role: flowrec.RoleKey},
			{Field: flowrec.FieldBytes, Role: flowrec.RoleSum},
		}}
		schema = flowrec.NewSchema(fs)

		rec := flowrec.NewRecord(schema)
		rec.SetUint64(schema, flowrec.FieldProto, 6)
		rec.SetUint64(schema, flowrec.FieldBytes, 1500)

		result = &session.Result{
			Rows:  []flowrec.Record{rec},
			Stats: statsred.Snapshot{RecordsMatched: 1},
		}
	})

	It("renders a pretty table with the field names as headers", func() {
		var buf bytes.Buffer
		Expect(Render(&buf, "pretty", fs, result)).To(Succeed())
		out := buf.String()
		Expect(out).To(ContainSubstring("PROTO"))
		Expect(out).To(ContainSubstring("BYTES"))
		Expect(out).To(ContainSubstring("6"))
		Expect(out).To(ContainSubstring("1500"))
	})

	It("renders CSV with a header row and one data row per record", func() {
		var buf bytes.Buffer
		Expect(Render(&buf, "csv", fs, result)).To(Succeed())
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		Expect(lines).To(HaveLen(2))
		Expect(lines[0]).To(Equal("proto,bytes"))
		Expect(lines[1]).To(Equal("6,1500"))
	})

	It("rejects an unknown output format", func() {
		var buf bytes.Buffer
		err := Render(&buf, "xml", fs, result)
		Expect(err).To(HaveOccurred())
	})
})
