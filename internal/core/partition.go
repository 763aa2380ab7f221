package core

// Partition splits a batch into cleaned and rejected rows.
//
// Both outputs keep input order. Each Rejected carries the row's 0-based
// position and the original RawRecord, untouched. Partition is pure: the
// same schema and batch always yield the same result.
func Partition(schema EntitySchema, batch Batch) PartitionResult {
	var res PartitionResult

	for i, row := range batch.Rows {
		outcome := ValidateRecord(schema, row)
		if outcome.Accepted() {
			res.Cleaned = append(res.Cleaned, outcome.Record)
			continue
		}
		res.Invalid = append(res.Invalid, Rejected{
			RowIndex: i,
			RawData:  row,
			Errors:   outcome.Errors,
		})
	}

	return res
}
