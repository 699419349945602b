package bulk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/assessment-bulk/internal/domain/attribute"
)

func TestGrid_View(t *testing.T) {
	g := loadedGrid(t)
	require.NoError(t, g.ChangeValue(2, idxConclusion, attribute.TextValue("Ineffective")))

	view := g.View()

	assert.Len(t, view.Columns, 4)
	assert.Equal(t, "Map:Org", view.Columns[idxScore].ServerType)
	require.Len(t, view.Rows, 2)
	assert.Equal(t, []int64{1}, view.ReadyIDs)
	assert.True(t, view.IsAttributeModified)
	assert.True(t, view.IsSaveEnabled)

	first := view.Rows[0]
	assert.True(t, first.Ready)
	assert.Equal(t, true, first.Attributes[idxTested].Value)
	assert.Equal(t, []attribute.Person{{ID: 7, Type: attribute.PersonType}}, first.Attributes[idxOwner].Value)

	second := view.Rows[1]
	assert.False(t, second.Ready)
	assert.Nil(t, second.Attributes[idxOwner].Value)
	assert.False(t, second.Attributes[idxOwner].Applicable)
	conclusion := second.Attributes[idxConclusion]
	assert.Equal(t, "Ineffective", conclusion.Value)
	assert.True(t, conclusion.RequiredInfo.Comment)
	assert.True(t, conclusion.Errors.Comment)
	require.NotNil(t, conclusion.Attachments)
	assert.Equal(t, []string{"Effective", "Ineffective", "Partial"}, conclusion.Options)
}

func TestGrid_ViewIsACopy(t *testing.T) {
	g := loadedGrid(t)
	require.NoError(t, g.ChangeValue(2, idxConclusion, attribute.TextValue("Partial")))
	require.NoError(t, g.UpdateRequiredInfo(22, RequiredInfoChanges{URLs: []string{"https://a"}}))

	view := g.View()
	view.Rows[1].Attributes[idxConclusion].Attachments.URLs[0] = "changed"

	_, attr, err := g.FindAttribute(22)
	require.NoError(t, err)
	assert.Equal(t, "https://a", attr.Attachments.URLs[0])
}
