package faces

import "fmt"

// Component ids of the diary page. The numeric segment in the field ids is
// the row correlation key exposed by PrimeFaces as data-ri.
const (
	StudentTableBodyID    = "tabViewDiarioClasse:formAbaConceitos:dataTableConceitos_data"
	AssessmentTableBodyID = "tabViewDiarioClasse:formAbaAulasAvaliacoes:panelAvaliacao:avaliacoesDataTable_data"
	RecoveryTableBodyID   = "tabViewDiarioClasse:formAbaAulasAvaliacoes:painelRecuperacaoParalela:recuperacoesParalelas_data"
	ModalSkillTableBodyID = "formModalAvaliacao:tabViewModalAvaliacao:painelTabelaHabilidade:tabelaHabilidade_data"

	AttitudePanelID   = "formAtitudes:panelAtitudes"
	AttitudeTableID   = "formAtitudes:panelAtitudes:dataTableAtitudes"
	SkillGradeTableID = "formAtitudes:panelAtitudes:dataTableHabilidades"
	FinalGradeTableID = "tabViewDiarioClasse:formAbaConceitos:dataTableConceitos"
	AssessmentTableID = "tabViewDiarioClasse:formAbaAulasAvaliacoes:panelAvaliacao:avaliacoesDataTable"
	AssessmentModalID = "modalAvaliacao"
	StudentNameLinkID = "linkNomeEstudanteAbaConceitos"

	ConceptsFormID = "tabViewDiarioClasse:formAbaConceitos"
	PeriodComboID  = "tabViewDiarioClasse:formAbaConceitos:mediasConceito"
)

// AttitudeFieldID returns the observation combo id for one attitude row.
func AttitudeFieldID(row int) string {
	return fmt.Sprintf("%s:%d:observacaoAtitude", AttitudeTableID, row)
}

// SkillGradeFieldID returns the grade combo id for one skill row.
func SkillGradeFieldID(row int) string {
	return fmt.Sprintf("%s:%d:notaConceito", SkillGradeTableID, row)
}

// FinalGradeFieldID returns the final-grade combo id for one student row.
func FinalGradeFieldID(row int) string {
	return fmt.Sprintf("%s:%d:comboConceitoFinal", FinalGradeTableID, row)
}

// AssessmentLinkID returns the modal-opening link id for one assessment row.
func AssessmentLinkID(row int) string {
	return fmt.Sprintf("%s:%d:aulasAvaliacao", AssessmentTableID, row)
}
