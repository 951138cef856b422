package models

// All liefert alle persistierten Modelle für AutoMigrate.
func All() []any {
	return []any{
		&Paper{},
		&Author{},
		&Institution{},
		&Method{},
		&Dataset{},
		&PaperAuthor{},
		&AuthorInstitution{},
		&PaperMethod{},
		&PaperDataset{},
		&Citation{},
		&TextChunk{},
		&UserWorkspace{},
		&WorkspacePaper{},
		&PaperStatistics{},
	}
}
