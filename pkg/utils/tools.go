// Copyright 2022 bytetrade
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package utils

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"paystore/internal/constants"

	"github.com/golang/glog"
)

// PrettyJSON renders v as indented JSON, or "" when v cannot be encoded.
func PrettyJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		glog.Errorf("encode %T, err:%v", v, err)
		return ""
	}
	return buf.String()
}

func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func CheckDir(dirname string) error {
	fi, err := os.Stat(dirname)
	if (err == nil || os.IsExist(err)) && fi.IsDir() {
		return nil
	}
	if os.IsExist(err) {
		return err
	}

	err = os.MkdirAll(dirname, 0755)
	return err
}

func CheckParentDir(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	return CheckDir(filepath.Dir(absPath))
}

// VerifyFromAndSize turns page/size query values into an offset and limit.
func VerifyFromAndSize(page, size string) (int, int) {
	pageN, err := strconv.Atoi(page)
	if pageN < 1 || err != nil {
		pageN = constants.DefaultPage
	}

	sizeN, err := strconv.Atoi(size)
	if sizeN < 1 || err != nil {
		sizeN = constants.DefaultPageSize
	}

	return (pageN - 1) * sizeN, sizeN
}
