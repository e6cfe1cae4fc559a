package service

import "strings"

// soDigitos strips punctuation from CPF / CNPJ input ("12.345.678/0001-95").
func soDigitos(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func todosIguais(s string) bool {
	return strings.Count(s, s[:1]) == len(s)
}

// digitoVerificador computes one mod-11 check digit over digits with weights.
func digitoVerificador(digits string, pesos []int) byte {
	soma := 0
	for i, p := range pesos {
		soma += int(digits[i]-'0') * p
	}
	resto := soma % 11
	if resto < 2 {
		return '0'
	}
	return byte('0' + 11 - resto)
}

// ValidarCPF expects 11 digits with no punctuation.
func ValidarCPF(cpf string) bool {
	if len(cpf) != 11 || todosIguais(cpf) {
		return false
	}
	d1 := digitoVerificador(cpf, []int{10, 9, 8, 7, 6, 5, 4, 3, 2})
	d2 := digitoVerificador(cpf, []int{11, 10, 9, 8, 7, 6, 5, 4, 3, 2})
	return cpf[9] == d1 && cpf[10] == d2
}

// ValidarCNPJ expects 14 digits with no punctuation.
func ValidarCNPJ(cnpj string) bool {
	if len(cnpj) != 14 || todosIguais(cnpj) {
		return false
	}
	d1 := digitoVerificador(cnpj, []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2})
	d2 := digitoVerificador(cnpj, []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2})
	return cnpj[12] == d1 && cnpj[13] == d2
}
