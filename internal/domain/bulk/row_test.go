package bulk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/assessment-bulk/internal/domain/attribute"
	"github.com/garyjia/assessment-bulk/internal/domain/event"
)

func dropdownDef(title string) attribute.Definition {
	return attribute.Definition{Title: title, Type: attribute.TypeDropdown, ServerType: "Dropdown"}
}

func inputDef(title string, mandatory bool) attribute.Definition {
	return attribute.Definition{Title: title, Type: attribute.TypeInput, ServerType: "Text", Mandatory: mandatory}
}

func TestRow_InitAnnouncesReadiness(t *testing.T) {
	t.Run("ready row", func(t *testing.T) {
		sink := &recordingSink{}
		row := NewRow(AssessmentRecord{ID: 1}, []*attribute.Instance{
			attribute.NewInstance(inputDef("a", true), 1, 1, attribute.TextValue("x"), attribute.Options{}),
		}, sink)

		row.Init()

		assert.True(t, row.IsReadyToComplete)
		require.Len(t, sink.events, 1)
		assert.Equal(t, event.TypeReadyToComplete, sink.events[0].Type)
		assert.Equal(t, int64(1), sink.events[0].AssessmentID)
	})

	t.Run("row not ready stays quiet", func(t *testing.T) {
		sink := &recordingSink{}
		row := NewRow(AssessmentRecord{ID: 1}, []*attribute.Instance{
			attribute.NewInstance(inputDef("a", true), 1, 1, attribute.TextValue(""), attribute.Options{}),
		}, sink)

		row.Init()

		assert.False(t, row.IsReadyToComplete)
		assert.Empty(t, sink.events)
	})
}

func TestRow_ReadinessIsConjunction(t *testing.T) {
	row := NewRow(AssessmentRecord{ID: 1}, []*attribute.Instance{
		attribute.NewInstance(inputDef("a", true), 1, 1, attribute.TextValue("x"), attribute.Options{}),
		attribute.NewInstance(inputDef("b", true), 2, 1, attribute.TextValue("y"), attribute.Options{}),
		attribute.NewNotApplicable(inputDef("c", true)),
	}, nil)
	row.Init()
	require.True(t, row.IsReadyToComplete)

	require.NoError(t, row.AttributeValueChanged(attribute.TextValue(""), 1))
	assert.False(t, row.IsReadyToComplete)

	require.NoError(t, row.AttributeValueChanged(attribute.TextValue("z"), 1))
	assert.True(t, row.IsReadyToComplete)
}

func TestRow_AttributeValueChanged(t *testing.T) {
	opts := attribute.ParseOptions("Yes,No", "0,1")

	t.Run("marks modified and publishes", func(t *testing.T) {
		sink := &recordingSink{}
		row := NewRow(AssessmentRecord{ID: 3}, []*attribute.Instance{
			attribute.NewInstance(inputDef("a", false), 1, 3, attribute.TextValue(""), attribute.Options{}),
		}, sink)
		row.Init()
		sink.events = nil

		require.NoError(t, row.AttributeValueChanged(attribute.TextValue("v"), 0))

		assert.True(t, row.Attributes[0].Modified)
		require.Len(t, sink.events, 1)
		assert.Equal(t, event.TypeAttributeModified, sink.events[0].Type)
		assert.True(t, sink.events[0].Ready)
	})

	t.Run("dropdown selection resets the bundle", func(t *testing.T) {
		row := NewRow(AssessmentRecord{ID: 3}, []*attribute.Instance{
			attribute.NewInstance(dropdownDef("d"), 1, 3, attribute.TextValue("Yes"), opts),
		}, nil)
		row.Init()

		require.NoError(t, row.AttributeValueChanged(attribute.TextValue("No"), 0))
		attr := row.Attributes[0]
		require.NotNil(t, attr.Attachments)
		assert.False(t, attr.Attachments.HasContent())
		assert.True(t, attr.Errors.Comment)
		assert.False(t, row.IsReadyToComplete)

		require.NoError(t, row.AttributeValueChanged(attribute.TextValue("Yes"), 0))
		assert.Nil(t, attr.Attachments)
		assert.True(t, row.IsReadyToComplete)
	})

	t.Run("dropdown value outside the options is rejected", func(t *testing.T) {
		sink := &recordingSink{}
		row := NewRow(AssessmentRecord{ID: 3}, []*attribute.Instance{
			attribute.NewInstance(dropdownDef("d"), 1, 3, attribute.TextValue("Yes"), opts),
		}, sink)
		row.Init()
		sink.events = nil

		err := row.AttributeValueChanged(attribute.TextValue("no"), 0)

		assert.ErrorIs(t, err, attribute.ErrInvalidValue)
		attr := row.Attributes[0]
		assert.Equal(t, "Yes", attr.Value.Text)
		assert.False(t, attr.Modified)
		assert.Empty(t, sink.events)
	})

	t.Run("index out of range", func(t *testing.T) {
		row := NewRow(AssessmentRecord{ID: 3}, nil, nil)

		err := row.AttributeValueChanged(attribute.TextValue("x"), 2)
		assert.ErrorIs(t, err, ErrAttributeIndex)
	})

	t.Run("not applicable attribute", func(t *testing.T) {
		row := NewRow(AssessmentRecord{ID: 3}, []*attribute.Instance{
			attribute.NewNotApplicable(inputDef("a", true)),
		}, nil)

		err := row.AttributeValueChanged(attribute.TextValue("x"), 0)
		assert.ErrorIs(t, err, ErrNotApplicable)
		assert.False(t, row.Attributes[0].Modified)
	})
}

func TestRow_CommentScenario(t *testing.T) {
	sink := &recordingSink{}
	row := NewRow(AssessmentRecord{ID: 5}, []*attribute.Instance{
		attribute.NewInstance(dropdownDef("d"), 50, 5, attribute.TextValue(""), attribute.ParseOptions("Yes,No", "0,1")),
	}, sink)
	row.Init()

	require.NoError(t, row.AttributeValueChanged(attribute.TextValue("No"), 0))
	assert.False(t, row.IsReadyToComplete)

	sink.events = nil
	err := row.UpdateRequiredInfo(50, RequiredInfoChanges{Comment: strPtr("<p>Evidence reviewed</p>")})
	require.NoError(t, err)

	assert.True(t, row.IsReadyToComplete)
	assert.Equal(t, 1, sink.count(event.TypeAttributeModified))
	assert.Len(t, sink.events, 1)
	assert.True(t, sink.events[0].Ready)
}

func TestRow_BlankCommentDoesNotSatisfy(t *testing.T) {
	row := NewRow(AssessmentRecord{ID: 5}, []*attribute.Instance{
		attribute.NewInstance(dropdownDef("d"), 50, 5, attribute.TextValue(""), attribute.ParseOptions("Yes,No", "0,1")),
	}, nil)
	row.Init()
	require.NoError(t, row.AttributeValueChanged(attribute.TextValue("No"), 0))

	require.NoError(t, row.UpdateRequiredInfo(50, RequiredInfoChanges{Comment: strPtr("<p> </p>")}))

	assert.Nil(t, row.Attributes[0].Attachments.Comment)
	assert.True(t, row.Attributes[0].Errors.Comment)
	assert.False(t, row.IsReadyToComplete)
}

func TestRow_AggregateAttachmentCounting(t *testing.T) {
	opts := attribute.ParseOptions("Yes,No", "0,2")
	row := NewRow(AssessmentRecord{ID: 8}, []*attribute.Instance{
		attribute.NewInstance(dropdownDef("first"), 81, 8, attribute.TextValue(""), opts),
		attribute.NewInstance(dropdownDef("second"), 82, 8, attribute.TextValue(""), opts),
	}, nil)
	row.Init()

	require.NoError(t, row.AttributeValueChanged(attribute.TextValue("No"), 0))
	require.NoError(t, row.AttributeValueChanged(attribute.TextValue("No"), 1))
	assert.Equal(t, 2, row.RequiredCount(attribute.KindAttachment))

	shared := attribute.File{ID: "g1", Title: "evidence.pdf", Link: "https://drive/g1"}
	require.NoError(t, row.UpdateRequiredInfo(81, RequiredInfoChanges{Files: []attribute.File{shared}}))

	assert.Equal(t, 1, row.SuppliedCount(attribute.KindAttachment))
	for _, attr := range row.Attributes {
		assert.True(t, attr.Validation.HasMissingInfo, attr.Title)
		assert.True(t, attr.Errors.File, attr.Title)
	}
	assert.False(t, row.IsReadyToComplete)

	second := attribute.File{ID: "g2", Title: "more.pdf"}
	require.NoError(t, row.UpdateRequiredInfo(82, RequiredInfoChanges{Files: []attribute.File{second}}))

	for _, attr := range row.Attributes {
		assert.False(t, attr.Validation.HasMissingInfo, attr.Title)
		assert.True(t, attr.Validation.HasUnsavedAttachments, attr.Title)
	}
	assert.True(t, row.IsReadyToComplete)
}

func TestRow_BaselineCountsSupply(t *testing.T) {
	row := NewRow(AssessmentRecord{ID: 9, FilesCount: 1, URLsCount: 2}, []*attribute.Instance{
		attribute.NewInstance(dropdownDef("d"), 91, 9, attribute.TextValue("No"), attribute.ParseOptions("Yes,No", "0,6")),
	}, nil)
	row.Init()

	assert.Equal(t, 1, row.SuppliedCount(attribute.KindAttachment))
	assert.Equal(t, 2, row.SuppliedCount(attribute.KindURL))
	assert.Equal(t, 0, row.SuppliedCount(attribute.KindComment))
	assert.True(t, row.IsReadyToComplete)
}

func TestRow_UpdateRequiredInfoErrors(t *testing.T) {
	row := NewRow(AssessmentRecord{ID: 4}, []*attribute.Instance{
		attribute.NewInstance(inputDef("a", false), 41, 4, attribute.TextValue(""), attribute.Options{}),
	}, nil)

	err := row.UpdateRequiredInfo(0, RequiredInfoChanges{})
	assert.ErrorIs(t, err, ErrAttributeNotFound)

	err = row.UpdateRequiredInfo(99, RequiredInfoChanges{})
	assert.ErrorIs(t, err, ErrAttributeNotFound)

	err = row.UpdateRequiredInfo(41, RequiredInfoChanges{})
	assert.ErrorIs(t, err, ErrNoRequiredInfo)
}

func TestRow_UpdateRequiredInfoCopiesInput(t *testing.T) {
	row := NewRow(AssessmentRecord{ID: 4}, []*attribute.Instance{
		attribute.NewInstance(dropdownDef("d"), 41, 4, attribute.TextValue("No"), attribute.ParseOptions("Yes,No", "0,4")),
	}, nil)
	row.Init()

	urls := []string{"https://a.example"}
	require.NoError(t, row.UpdateRequiredInfo(41, RequiredInfoChanges{URLs: urls}))
	urls[0] = "mutated"

	assert.Equal(t, []string{"https://a.example"}, row.Attributes[0].Attachments.URLs)
}

func TestRow_ValidateAllIdempotent(t *testing.T) {
	row := NewRow(AssessmentRecord{ID: 4}, []*attribute.Instance{
		attribute.NewInstance(dropdownDef("d"), 41, 4, attribute.TextValue("No"), attribute.ParseOptions("Yes,No", "0,7")),
		attribute.NewInstance(inputDef("a", true), 42, 4, attribute.TextValue(""), attribute.Options{}),
	}, nil)
	row.Init()

	snapshot := func() []attribute.Instance {
		out := make([]attribute.Instance, 0, len(row.Attributes))
		for _, attr := range row.Attributes {
			out = append(out, *attr)
		}
		return out
	}

	row.ValidateAll()
	first := snapshot()
	row.ValidateAll()

	assert.Equal(t, first, snapshot())
}

func TestRow_MarkPersisted(t *testing.T) {
	row := NewRow(AssessmentRecord{ID: 6}, []*attribute.Instance{
		attribute.NewInstance(dropdownDef("d"), 61, 6, attribute.TextValue(""), attribute.ParseOptions("Yes,No", "0,3")),
	}, nil)
	row.Init()
	require.NoError(t, row.AttributeValueChanged(attribute.TextValue("No"), 0))
	require.NoError(t, row.UpdateRequiredInfo(61, RequiredInfoChanges{
		Comment: strPtr("done"),
		Files:   []attribute.File{{ID: "f1", Title: "f"}},
	}))
	require.True(t, row.IsReadyToComplete)

	row.markPersisted()

	attr := row.Attributes[0]
	assert.False(t, attr.Modified)
	assert.False(t, attr.Validation.HasUnsavedAttachments)
	assert.Equal(t, 1, row.FilesCount)
	assert.False(t, attr.Attachments.HasContent())
	assert.True(t, row.IsReadyToComplete)
}
